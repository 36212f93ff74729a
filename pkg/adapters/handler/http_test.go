package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store/storetest"
	"github.com/wadjakorntonsri/custom-links/pkg/config"
	"github.com/wadjakorntonsri/custom-links/pkg/core/domain"
	"github.com/wadjakorntonsri/custom-links/pkg/core/services"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

const testSecret = "handler-test-secret"

type apiFixture struct {
	t       *testing.T
	router  http.Handler
	service *services.LinkService
	store   *storetest.Faulty
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	cfg := &config.Config{JWTSecret: testSecret, FrontendURL: "/", AuthTestMode: true}
	store := storetest.NewFaulty(storetest.NewMemory(t))
	service := services.NewLinkService(store, nil, services.Options{})
	t.Cleanup(service.Wait)

	for _, user := range []string{"alice@example.com", "bob@example.com"} {
		_, err := service.FindOrCreateUser(context.Background(), user)
		require.NoError(t, err)
	}
	return &apiFixture{
		t:       t,
		router:  NewRouter(cfg, service, slog.New(slog.DiscardHandler), nil),
		service: service,
		store:   store,
	}
}

func (f *apiFixture) do(method, target, user, body string) *httptest.ResponseRecorder {
	f.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: generateTestToken(f.t, testSecret, user, time.Minute)})
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *apiFixture) create(path, target, user string) {
	f.t.Helper()
	rr := f.do("POST", "/api/v1/create"+path, user, `{"target":"`+target+`"}`)
	require.Equal(f.t, http.StatusCreated, rr.Code, rr.Body.String())
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func TestCreateAndInfo(t *testing.T) {
	f := newAPIFixture(t)

	rr := f.do("POST", "/api/v1/create/docs/guide", "alice@example.com", `{"target":"https://example.com/guide"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeBody[domain.Link](t, rr)
	assert.Equal(t, "/docs/guide", created.Path)
	assert.Equal(t, "alice@example.com", created.Owner)

	rr = f.do("GET", "/api/v1/info/docs/guide", "bob@example.com", "")
	require.Equal(t, http.StatusOK, rr.Code)
	info := decodeBody[domain.Link](t, rr)
	assert.Equal(t, "https://example.com/guide", info.Target)
	assert.Zero(t, info.Count)
}

func TestCreateRejections(t *testing.T) {
	f := newAPIFixture(t)
	f.create("/taken", "https://example.com", "alice@example.com")

	tests := []struct {
		name   string
		path   string
		user   string
		body   string
		status int
	}{
		{"unauthenticated", "/api/v1/create/free", "", `{"target":"https://example.com"}`, http.StatusUnauthorized},
		{"bad json", "/api/v1/create/free", "alice@example.com", `{`, http.StatusBadRequest},
		{"relative target", "/api/v1/create/free", "alice@example.com", `{"target":"/elsewhere"}`, http.StatusBadRequest},
		{"ftp target", "/api/v1/create/free", "alice@example.com", `{"target":"ftp://example.com"}`, http.StatusBadRequest},
		{"unknown user", "/api/v1/create/free", "carol@example.com", `{"target":"https://example.com"}`, http.StatusNotFound},
		{"taken", "/api/v1/create/taken", "bob@example.com", `{"target":"https://example.com"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do("POST", tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}

	rr := f.do("POST", "/api/v1/create/taken", "bob@example.com", `{"target":"https://example.com"}`)
	conflict := decodeBody[map[string]string](t, rr)
	assert.Equal(t, "alice@example.com", conflict["owner"])
}

func TestCreateWithIndexFailureStillCreated(t *testing.T) {
	f := newAPIFixture(t)
	f.store.FailOn("SAdd", "", nil)

	rr := f.do("POST", "/api/v1/create/partial", "alice@example.com", `{"target":"https://example.com"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	link, err := f.service.GetLink(context.Background(), "/partial", ports.GetLinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.Target)
}

func TestCreateStoreFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.store.FailOn("HSetNX", "", nil)

	rr := f.do("POST", "/api/v1/create/broken", "alice@example.com", `{"target":"https://example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), storetest.ErrInjected.Error())
}

func TestRedirect(t *testing.T) {
	f := newAPIFixture(t)
	f.create("/go", "https://example.com/destination", "alice@example.com")

	rr := f.do("GET", "/go", "", "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.com/destination", rr.Header().Get("Location"))

	rr = f.do("HEAD", "/go?no_stat=1", "", "")
	assert.Equal(t, http.StatusFound, rr.Code)

	f.service.Wait()
	link, err := f.service.GetLink(context.Background(), "/go", ports.GetLinkOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, link.Count)

	assert.Equal(t, http.StatusNotFound, f.do("GET", "/missing", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do("GET", "/", "", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do("POST", "/go", "", "").Code)
}

func TestUpdateTarget(t *testing.T) {
	f := newAPIFixture(t)
	f.create("/t", "https://old.example.com", "alice@example.com")

	rr := f.do("POST", "/api/v1/update/target/t", "bob@example.com", `{"target":"https://new.example.com"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do("POST", "/api/v1/update/target/t", "alice@example.com", `{"target":"https://new.example.com"}`)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do("GET", "/api/v1/search/target?url=https://new.example.com", "alice@example.com", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBody[struct {
		Links []string `json:"links"`
	}](t, rr)
	assert.Equal(t, []string{"/t"}, got.Links)

	rr = f.do("POST", "/api/v1/update/target/nope", "alice@example.com", `{"target":"https://new.example.com"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateOwnerAndUserLinks(t *testing.T) {
	f := newAPIFixture(t)
	f.create("/handoff", "https://example.com", "alice@example.com")

	rr := f.do("POST", "/api/v1/update/owner/handoff", "alice@example.com", `{"owner":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do("POST", "/api/v1/update/owner/handoff", "alice@example.com", `{"owner":"carol@example.com"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do("POST", "/api/v1/update/owner/handoff", "alice@example.com", `{"owner":"bob@example.com"}`)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do("GET", "/api/v1/user/links", "bob@example.com", "")
	require.Equal(t, http.StatusOK, rr.Code)
	owned := decodeBody[struct {
		Links []domain.Link `json:"links"`
	}](t, rr)
	require.Len(t, owned.Links, 1)
	assert.Equal(t, "/handoff", owned.Links[0].Path)

	rr = f.do("GET", "/api/v1/user/links", "alice@example.com", "")
	require.Equal(t, http.StatusOK, rr.Code)
	owned = decodeBody[struct {
		Links []domain.Link `json:"links"`
	}](t, rr)
	assert.Empty(t, owned.Links)
}

func TestDelete(t *testing.T) {
	f := newAPIFixture(t)
	f.create("/gone", "https://example.com", "alice@example.com")

	assert.Equal(t, http.StatusForbidden, f.do("DELETE", "/api/v1/delete/gone", "bob@example.com", "").Code)
	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/api/v1/delete/gone", "alice@example.com", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do("DELETE", "/api/v1/delete/gone", "alice@example.com", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do("GET", "/gone", "", "").Code)
}

func TestSearchAndComplete(t *testing.T) {
	f := newAPIFixture(t)
	f.create("/foo", "https://foo.example.com", "alice@example.com")
	f.create("/foobar", "https://foo.example.com/bar", "alice@example.com")
	f.create("/baz", "https://baz.example.com", "bob@example.com")

	rr := f.do("GET", "/api/v1/search/links?q=foo", "alice@example.com", "")
	require.Equal(t, http.StatusOK, rr.Code)
	links := decodeBody[struct {
		Links []string `json:"links"`
	}](t, rr)
	assert.Equal(t, []string{"/foo", "/foobar"}, links.Links)

	rr = f.do("GET", "/api/v1/search/targets?q=foo.example", "alice@example.com", "")
	require.Equal(t, http.StatusOK, rr.Code)
	targets := decodeBody[struct {
		Targets map[string][]string `json:"targets"`
	}](t, rr)
	assert.Equal(t, map[string][]string{
		"https://foo.example.com":     {"/foo"},
		"https://foo.example.com/bar": {"/foobar"},
	}, targets.Targets)

	rr = f.do("GET", "/api/v1/complete?prefix=/fo", "alice@example.com", "")
	require.Equal(t, http.StatusOK, rr.Code)
	completed := decodeBody[struct {
		Links []string `json:"links"`
	}](t, rr)
	assert.Equal(t, []string{"/foo", "/foobar"}, completed.Links)

	rr = f.do("GET", "/api/v1/complete?prefix=/f", "alice@example.com", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do("GET", "/api/v1/search/target", "alice@example.com", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTestLoginCreatesUser(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest("POST", "/auth/test/login", strings.NewReader("email=carol@example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)

	exists, err := f.service.UserExists(context.Background(), "carol@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	req = httptest.NewRequest("POST", "/api/v1/create/carol", strings.NewReader(`{"target":"https://example.com"}`))
	req.AddCookie(session)
	rr = httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestTestLoginNotRoutedByDefault(t *testing.T) {
	service := services.NewLinkService(storetest.NewMemory(t), nil, services.Options{})
	router := NewRouter(&config.Config{JWTSecret: testSecret}, service, slog.New(slog.DiscardHandler), nil)

	req := httptest.NewRequest("POST", "/auth/test/login", strings.NewReader("email=carol@example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// falls through to the short link handler
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAllowlist(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret, AuthTestMode: true, AllowedEmails: []string{"alice@example.com"}}
	service := services.NewLinkService(storetest.NewMemory(t), nil, services.Options{})
	router := NewRouter(cfg, service, slog.New(slog.DiscardHandler), nil)

	req := httptest.NewRequest("POST", "/auth/test/login", strings.NewReader("email=mallory@example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	exists, err := service.UserExists(context.Background(), "mallory@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	rr := f.do("GET", "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"ok"}`, rr.Body.String())
}
