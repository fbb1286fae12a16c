package httpx

import (
	"net/http"

	"github.com/splax/ledger/internal/apperr"
	jwtpkg "github.com/splax/ledger/pkg/jwt"
)

// Verification is the outcome of checking the request credential. Exactly
// one of Claims and Reason is set once authentication has run.
type Verification struct {
	Claims *jwtpkg.Claims
	Reason error
}

// Identity is the trusted caller bound by the authorization gate.
type Identity struct {
	UserID int64
}

// Session is the typed per-request state shared by stages and the handler.
type Session struct {
	RequestID    string
	Verification Verification
	identity     *Identity
}

// Bind records the trusted identity for the rest of the request.
func (s *Session) Bind(id Identity) {
	s.identity = &id
}

// Identity returns the bound identity, if any.
func (s *Session) Identity() (Identity, bool) {
	if s == nil || s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Verdict tells the dispatcher whether to run the next stage.
type Verdict struct {
	err error
}

// Continue lets the pipeline proceed.
func Continue() Verdict { return Verdict{} }

// Abort stops the pipeline and answers with err.
func Abort(err error) Verdict {
	if err == nil {
		err = apperr.Internal("pipeline aborted", nil)
	}
	return Verdict{err: err}
}

// Aborted reports whether the verdict stops the pipeline.
func (v Verdict) Aborted() bool { return v.err != nil }

// Err returns the abort reason.
func (v Verdict) Err() error { return v.err }

// Stage is one step of request processing ahead of the handler.
type Stage func(*http.Request, *Session) Verdict

type handlerFunc func(http.ResponseWriter, *http.Request, *Session)

type protectedFunc func(http.ResponseWriter, *http.Request, Identity)

// run executes stages in order and returns the first aborting verdict.
func run(req *http.Request, sess *Session, stages []Stage) Verdict {
	for _, stage := range stages {
		if v := stage(req, sess); v.Aborted() {
			return v
		}
	}
	return Continue()
}
