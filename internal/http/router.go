package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/ledger/internal/apperr"
	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/service/auth"
	"github.com/splax/ledger/internal/service/ledger"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	ledger   ledger.Service
	verifier TokenVerifier
	basePath string
	dbHealth func(context.Context) error
	metrics  *metrics
}

const (
	healthCheckTimeout = 2 * time.Second
	maxFormBytes       = 1 << 20
	requestIDHeader    = "X-Request-ID"
)

// NewRouter assembles routes with dependencies. Every route is mounted
// under basePath, which must be empty or start with a slash.
func NewRouter(logger *slog.Logger, authSvc auth.Service, ledgerSvc ledger.Service, verifier TokenVerifier, basePath string, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		ledger:   ledgerSvc,
		verifier: verifier,
		basePath: strings.TrimRight(basePath, "/"),
		dbHealth: dbHealth,
		metrics:  newMetrics(),
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc(r.basePath+"/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle(r.basePath+"/metrics", r.metrics.handler())

	r.public("/login", http.MethodPost, r.handleLogin)
	r.public("/reg", http.MethodPost, r.handleRegister)

	r.protected("/bill/list", http.MethodGet, r.handleListTransactions)
	r.protected("/bill/add", http.MethodPost, r.handleAddTransaction)
	r.protected("/bill/del", http.MethodPost, r.handleDeleteTransaction)
	r.protected("/tag/add", http.MethodPost, r.handleAddTag)
	r.protected("/tag/list", http.MethodPost, r.handleListTags)
	r.protected("/tag/del", http.MethodPost, r.handleDeleteTag)

	r.mux.HandleFunc("/", r.audit("unmatched", func(w http.ResponseWriter, _ *http.Request, _ *Session) {
		writeFailure(w, http.StatusNotFound, "not found")
	}))
}

// public mounts a route that runs without credentials.
func (r *Router) public(route, method string, h handlerFunc) {
	r.mux.HandleFunc(r.basePath+route, r.audit(route, r.pipeline(method, []Stage{parseForm}, h)))
}

// protected mounts a route behind authentication and the authorization
// gate. The handler only ever runs with a bound identity.
func (r *Router) protected(route, method string, h protectedFunc) {
	stages := []Stage{authenticate(r.verifier), r.authorize, parseForm}
	r.mux.HandleFunc(r.basePath+route, r.audit(route, r.pipeline(method, stages, func(w http.ResponseWriter, req *http.Request, sess *Session) {
		id, ok := sess.Identity()
		if !ok {
			r.fail(w, req, apperr.Internal("identity missing after authorization", nil))
			return
		}
		h(w, req, id)
	})))
}

// pipeline enforces the method, runs stages in order and calls h only when
// none of them aborted.
func (r *Router) pipeline(method string, stages []Stage, h handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, req *http.Request, sess *Session) {
		if req.Method != method {
			w.Header().Set("Allow", method)
			writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if req.Body != nil {
			req.Body = http.MaxBytesReader(w, req.Body, maxFormBytes)
		}
		if v := run(req, sess, stages); v.Aborted() {
			if errors.Is(v.Err(), apperr.ErrUnauthorized) {
				r.metrics.authFailures.Inc()
			}
			r.fail(w, req, v.Err())
			return
		}
		h(w, req, sess)
	}
}

func parseForm(req *http.Request, _ *Session) Verdict {
	if err := req.ParseForm(); err != nil {
		return Abort(apperr.Validation("invalid form body"))
	}
	return Continue()
}

// fail writes err as an envelope, logging the cause of internal failures.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	if apperr.StatusOf(err) >= http.StatusInternalServerError {
		r.logger.Error("request failed", "error", err, "path", req.URL.Path)
	}
	writeError(w, err)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request, _ *Session) {
	token, err := r.auth.Login(req.Context(), req.FormValue("account"), req.FormValue("password"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, token)
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request, _ *Session) {
	if _, err := r.auth.Register(req.Context(), req.FormValue("account"), req.FormValue("password")); err != nil {
		r.fail(w, req, err)
		return
	}
	writeMessage(w, "registered")
}

func (r *Router) handleListTransactions(w http.ResponseWriter, req *http.Request, id Identity) {
	st, err := r.ledger.ListTransactions(req.Context(), id.UserID, req.FormValue("begin"), req.FormValue("end"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, st)
}

func (r *Router) handleAddTransaction(w http.ResponseWriter, req *http.Request, id Identity) {
	var tagID int64
	if raw := strings.TrimSpace(req.FormValue("tag_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			r.fail(w, req, apperr.Validation("invalid tag"))
			return
		}
		tagID = parsed
	}
	in := ledger.TransactionInput{
		Pay:             req.FormValue("pay"),
		PayMethod:       req.FormValue("pay_method"),
		Comment:         req.FormValue("comment"),
		TransactionDate: req.FormValue("transaction_date"),
		TagID:           tagID,
	}
	if _, err := r.ledger.AddTransaction(req.Context(), id.UserID, in); err != nil {
		r.fail(w, req, err)
		return
	}
	writeMessage(w, "transaction added")
}

func (r *Router) handleDeleteTransaction(w http.ResponseWriter, req *http.Request, id Identity) {
	txnID, err := formID(req)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	if err := r.ledger.DeleteTransaction(req.Context(), id.UserID, txnID); err != nil {
		r.fail(w, req, err)
		return
	}
	writeMessage(w, "transaction deleted")
}

func (r *Router) handleAddTag(w http.ResponseWriter, req *http.Request, id Identity) {
	if _, err := r.ledger.AddTag(req.Context(), id.UserID, req.FormValue("name")); err != nil {
		r.fail(w, req, err)
		return
	}
	writeMessage(w, "tag added")
}

func (r *Router) handleListTags(w http.ResponseWriter, req *http.Request, id Identity) {
	tags, err := r.ledger.ListTags(req.Context(), id.UserID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	writeData(w, map[string]any{"list": tags})
}

func (r *Router) handleDeleteTag(w http.ResponseWriter, req *http.Request, id Identity) {
	tagID, err := formID(req)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	if err := r.ledger.DeleteTag(req.Context(), id.UserID, tagID); err != nil {
		r.fail(w, req, err)
		return
	}
	writeMessage(w, "tag deleted")
}

func formID(req *http.Request) (int64, error) {
	raw := strings.TrimSpace(req.FormValue("id"))
	if raw == "" {
		return 0, apperr.Validation("id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request, _ *Session) {
	if req.Method != http.MethodGet {
		writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			r.logger.Warn("database health check failed", "error", err)
			components["database"] = map[string]any{"status": "down"}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if status != "ok" {
		writeJSON(w, http.StatusServiceUnavailable, envelope{Status: statusError, Code: http.StatusServiceUnavailable, Msg: dataMsg{Data: payload}})
		return
	}
	writeData(w, payload)
}

// audit assigns the request id and session, then logs and records metrics
// for the finished request.
func (r *Router) audit(route string, next handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		reqID := strings.TrimSpace(req.Header.Get(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		sess := &Session{RequestID: reqID}

		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req, sess)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		r.metrics.observe(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if id, ok := sess.Identity(); ok {
			fields = append(fields, "user_id", id.UserID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
