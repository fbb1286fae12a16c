package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/splax/ledger/internal/apperr"
	jwtpkg "github.com/splax/ledger/pkg/jwt"
)

// ErrMissingToken is recorded when the request carries no credential.
var ErrMissingToken = errors.New("missing token")

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*jwtpkg.Claims, error)
}

var errUnauthorized = apperr.Unauthorized("unauthorized")

// authenticate records the verification outcome of the request credential
// in the session. It never aborts; the gate decides.
func authenticate(verifier TokenVerifier) Stage {
	return func(req *http.Request, sess *Session) Verdict {
		token := tokenFromRequest(req)
		if token == "" {
			sess.Verification = Verification{Reason: ErrMissingToken}
			return Continue()
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			sess.Verification = Verification{Reason: err}
			return Continue()
		}
		sess.Verification = Verification{Claims: claims}
		return Continue()
	}
}

// authorize binds the verified user or aborts with a generic 401. The
// specific failure reason is logged only.
func (r *Router) authorize(req *http.Request, sess *Session) Verdict {
	v := sess.Verification
	if v.Claims == nil || v.Claims.UserID <= 0 {
		reason := v.Reason
		if reason == nil {
			reason = ErrMissingToken
		}
		r.logger.Warn("request unauthorized", "error", reason, "path", req.URL.Path, "request_id", sess.RequestID)
		return Abort(errUnauthorized)
	}
	sess.Bind(Identity{UserID: v.Claims.UserID})
	return Continue()
}

// tokenFromRequest prefers the Authorization header and falls back to the
// token query parameter.
func tokenFromRequest(req *http.Request) string {
	if token, err := bearerToken(req.Header.Get("Authorization")); err == nil {
		return token
	}
	return strings.TrimSpace(req.URL.Query().Get("token"))
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
