package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/ledger/internal/app/migrate"
	"github.com/splax/ledger/internal/repository/sqlite"
	"github.com/splax/ledger/internal/service/auth"
	"github.com/splax/ledger/internal/service/ledger"
	jwtpkg "github.com/splax/ledger/pkg/jwt"
)

const testSecret = "router-test-secret"

type testEnv struct {
	router    *Router
	authority *jwtpkg.Authority
}

type response struct {
	Status string          `json:"status"`
	Code   int             `json:"code"`
	Msg    json.RawMessage `json:"msg"`
}

func (r response) message(t *testing.T) string {
	t.Helper()
	var msg string
	require.NoError(t, json.Unmarshal(r.Msg, &msg))
	return msg
}

func (r response) data(t *testing.T, into any) {
	t.Helper()
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(r.Msg, &wrapper))
	require.NoError(t, json.Unmarshal(wrapper.Data, into))
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, basePath string) *testEnv {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	runner, err := migrate.New(repo.DB(), migrate.DialectSQLite, newLogger())
	require.NoError(t, err)
	require.NoError(t, runner.Ensure(context.Background()))

	authority, err := jwtpkg.NewAuthority(testSecret)
	require.NoError(t, err)

	authSvc := auth.New(repo.Users(), authority, newLogger())
	ledgerSvc := ledger.New(repo.Tags(), repo.Transactions(), newLogger())
	router := NewRouter(newLogger(), authSvc, ledgerSvc, authority, basePath, repo.Ping)
	return &testEnv{router: router, authority: authority}
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values, token string) response {
	t.Helper()
	rec := e.raw(t, method, path, form, token)
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	assert.Equal(t, rec.Code, resp.Code, "envelope code must match HTTP status")
	return resp
}

func (e *testEnv) raw(t *testing.T, method, path string, form url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if method == http.MethodGet {
		target := path
		if len(form) > 0 {
			target += "?" + form.Encode()
		}
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, account, password string) string {
	t.Helper()
	creds := url.Values{"account": {account}, "password": {password}}
	resp := e.do(t, http.MethodPost, "/reg", creds, "")
	require.Equal(t, http.StatusOK, resp.Code)
	resp = e.do(t, http.MethodPost, "/login", creds, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var token string
	resp.data(t, &token)
	require.NotEmpty(t, token)
	return token
}

type tagRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (e *testEnv) addTag(t *testing.T, token, name string) int64 {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/tag/add", url.Values{"name": {name}}, token)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Msg))
	var tags struct {
		List []tagRow `json:"list"`
	}
	e.do(t, http.MethodPost, "/tag/list", nil, token).data(t, &tags)
	for _, tag := range tags.List {
		if tag.Name == name {
			return tag.ID
		}
	}
	t.Fatalf("tag %q not listed", name)
	return 0
}

type statement struct {
	List []struct {
		ID      int64   `json:"id"`
		Pay     string  `json:"pay"`
		TagName *string `json:"tag_name"`
	} `json:"list"`
	PayAmount *string `json:"pay_amount"`
}

func TestEndToEndLedger(t *testing.T) {
	env := newTestEnv(t, "")

	token := env.login(t, "alice", "secret1")
	tagID := env.addTag(t, token, "food")

	resp := env.do(t, http.MethodPost, "/bill/add", url.Values{
		"pay":              {"12.50"},
		"pay_method":       {"cash"},
		"comment":          {"lunch"},
		"transaction_date": {"2024-01-10"},
		"tag_id":           {strconv.FormatInt(tagID, 10)},
	}, token)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Msg))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "transaction added", resp.message(t))

	var jan statement
	resp = env.do(t, http.MethodGet, "/bill/list", url.Values{"begin": {"2024-01-01"}, "end": {"2024-01-31"}}, token)
	require.Equal(t, http.StatusOK, resp.Code)
	resp.data(t, &jan)
	require.Len(t, jan.List, 1)
	assert.Equal(t, "12.50", jan.List[0].Pay)
	require.NotNil(t, jan.List[0].TagName)
	assert.Equal(t, "food", *jan.List[0].TagName)
	require.NotNil(t, jan.PayAmount)
	assert.Equal(t, "12.50", *jan.PayAmount)

	var feb statement
	resp = env.do(t, http.MethodGet, "/bill/list", url.Values{"begin": {"2024-02-01"}, "end": {"2024-02-28"}}, token)
	require.Equal(t, http.StatusOK, resp.Code)
	resp.data(t, &feb)
	assert.Empty(t, feb.List)
	assert.Nil(t, feb.PayAmount)
	assert.Contains(t, string(resp.Msg), `"pay_amount":null`)

	resp = env.do(t, http.MethodPost, "/bill/del", url.Values{"id": {strconv.FormatInt(jan.List[0].ID, 10)}}, token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "transaction deleted", resp.message(t))

	resp = env.do(t, http.MethodPost, "/tag/del", url.Values{"id": {strconv.FormatInt(tagID, 10)}}, token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "tag deleted", resp.message(t))
}

func TestRegisterAndLoginErrors(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t, "alice", "secret1")

	resp := env.do(t, http.MethodPost, "/reg", url.Values{"account": {"alice"}, "password": {"another1"}}, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "account exists", resp.message(t))

	wrongPassword := env.do(t, http.MethodPost, "/login", url.Values{"account": {"alice"}, "password": {"nope123"}}, "")
	unknownAccount := env.do(t, http.MethodPost, "/login", url.Values{"account": {"mallory"}, "password": {"secret1"}}, "")
	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, wrongPassword, unknownAccount)
	assert.Equal(t, "invalid credentials", wrongPassword.message(t))
}

func TestProtectedRoutesFailClosed(t *testing.T) {
	env := newTestEnv(t, "")
	valid := env.login(t, "alice", "secret1")

	other, err := jwtpkg.NewAuthority("some-other-secret")
	require.NoError(t, err)
	forged, err := other.Sign(1, time.Hour)
	require.NoError(t, err)

	past, err := jwtpkg.NewAuthority(testSecret, jwtpkg.WithClock(func() time.Time {
		return time.Now().Add(-48 * time.Hour)
	}))
	require.NoError(t, err)
	expired, err := past.Sign(1, time.Hour)
	require.NoError(t, err)

	routes := []struct {
		method, path string
		form         url.Values
	}{
		{http.MethodGet, "/bill/list", url.Values{"begin": {"2024-01-01"}, "end": {"2024-01-31"}}},
		{http.MethodPost, "/bill/add", url.Values{"pay": {"1"}, "transaction_date": {"2024-01-01"}, "tag_id": {"1"}}},
		{http.MethodPost, "/bill/del", url.Values{"id": {"1"}}},
		{http.MethodPost, "/tag/add", url.Values{"name": {"sneaky"}}},
		{http.MethodPost, "/tag/list", nil},
		{http.MethodPost, "/tag/del", url.Values{"id": {"1"}}},
	}
	tokens := map[string]string{
		"missing":   "",
		"malformed": "not-a-token",
		"forged":    forged,
		"expired":   expired,
	}
	for _, route := range routes {
		for name, token := range tokens {
			t.Run(route.path+"/"+name, func(t *testing.T) {
				resp := env.do(t, route.method, route.path, route.form, token)
				assert.Equal(t, http.StatusUnauthorized, resp.Code)
				assert.Equal(t, "error", resp.Status)
				assert.Equal(t, "unauthorized", resp.message(t))
			})
		}
	}

	var tags struct {
		List []tagRow `json:"list"`
	}
	env.do(t, http.MethodPost, "/tag/list", nil, valid).data(t, &tags)
	assert.Empty(t, tags.List)
}

func TestTokenFromQueryParameter(t *testing.T) {
	env := newTestEnv(t, "")
	token := env.login(t, "alice", "secret1")

	req := httptest.NewRequest(http.MethodPost, "/tag/list?token="+url.QueryEscape(token), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A well-formed header wins over the query parameter.
	req = httptest.NewRequest(http.MethodPost, "/tag/list?token="+url.QueryEscape(token), nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t, "")
	alice := env.login(t, "alice", "secret1")
	bob := env.login(t, "bob", "secret2")
	aliceTag := env.addTag(t, alice, "food")

	foreign := env.do(t, http.MethodPost, "/tag/del", url.Values{"id": {strconv.FormatInt(aliceTag, 10)}}, bob)
	missing := env.do(t, http.MethodPost, "/tag/del", url.Values{"id": {"424242"}}, bob)
	assert.Equal(t, missing, foreign)
	assert.Equal(t, "tag not found", foreign.message(t))

	resp := env.do(t, http.MethodPost, "/bill/add", url.Values{
		"pay": {"1.00"}, "transaction_date": {"2024-01-10"}, "tag_id": {strconv.FormatInt(aliceTag, 10)},
	}, bob)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid tag", resp.message(t))

	foreign = env.do(t, http.MethodPost, "/bill/del", url.Values{"id": {"1"}}, bob)
	assert.Equal(t, "transaction not found", foreign.message(t))
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t, "")
	token := env.login(t, "alice", "secret1")
	env.addTag(t, token, "food")

	tests := []struct {
		name         string
		method, path string
		form         url.Values
		code         int
		msg          string
	}{
		{"duplicate tag", http.MethodPost, "/tag/add", url.Values{"name": {"food"}}, http.StatusConflict, "tag already exists"},
		{"empty tag", http.MethodPost, "/tag/add", nil, http.StatusBadRequest, "name is required"},
		{"inverted range", http.MethodGet, "/bill/list", url.Values{"begin": {"2024-02-01"}, "end": {"2024-01-01"}}, http.StatusBadRequest, "invalid date range"},
		{"bad begin", http.MethodGet, "/bill/list", url.Values{"begin": {"yesterday"}, "end": {"2024-01-01"}}, http.StatusBadRequest, "invalid begin date"},
		{"missing end", http.MethodGet, "/bill/list", url.Values{"begin": {"2024-01-01"}}, http.StatusBadRequest, "end date is required"},
		{"bad pay", http.MethodPost, "/bill/add", url.Values{"pay": {"ten"}, "transaction_date": {"2024-01-01"}, "tag_id": {"1"}}, http.StatusBadRequest, "invalid pay amount"},
		{"non numeric tag", http.MethodPost, "/bill/add", url.Values{"pay": {"1"}, "transaction_date": {"2024-01-01"}, "tag_id": {"x"}}, http.StatusBadRequest, "invalid tag"},
		{"missing id", http.MethodPost, "/tag/del", nil, http.StatusBadRequest, "id is required"},
		{"non numeric id", http.MethodPost, "/bill/del", url.Values{"id": {"abc"}}, http.StatusBadRequest, "invalid id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, tt.form, token)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.msg, resp.message(t))
		})
	}
}

func TestMethodAndPathErrors(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodGet, "/login", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Equal(t, "method not allowed", resp.message(t))

	resp = env.do(t, http.MethodGet, "/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not found", resp.message(t))
}

func TestBasePath(t *testing.T) {
	env := newTestEnv(t, "/api")
	creds := url.Values{"account": {"alice"}, "password": {"secret1"}}

	resp := env.do(t, http.MethodPost, "/api/reg", creds, "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "registered", resp.message(t))

	resp = env.do(t, http.MethodPost, "/reg", creds, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"database":{"status":"up"}`)

	rec = env.raw(t, http.MethodPost, "/tag/list", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `ledger_api_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, body, "ledger_api_auth_rejections_total 1")
}

func TestHealthzDegraded(t *testing.T) {
	router := NewRouter(newLogger(), auth.Service{}, ledger.Service{}, nil, "", func(context.Context) error {
		return errors.New("db down")
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}
