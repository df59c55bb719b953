package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quick-swgoh/pkg/common/config"
	apperrors "quick-swgoh/pkg/common/errors"
	"quick-swgoh/pkg/core/lookup/model"
)

type seen struct {
	method, path, contentType, auth, requestID, body string
}

func newAPI(t *testing.T, status int, reply string) (*HertzAPI, *seen) {
	t.Helper()
	got := &seen{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*got = seen{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			requestID:   r.Header.Get("X-Request-ID"),
			body:        string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	api, err := New(config.BackendConfig{Origin: srv.URL, Timeout: 2 * time.Second, DialTimeout: time.Second})
	require.NoError(t, err)
	return api, got
}

func TestSend_PostsJSON(t *testing.T) {
	api, got := newAPI(t, 200, `{"name":"Rex"}`)

	resp, err := api.Send(context.Background(), Request{
		Path:      "/characters",
		Body:      model.CharacterQuery{CharID: "CT7567"},
		RequestID: "req-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 200, resp.Status)
	assert.JSONEq(t, `{"name":"Rex"}`, string(resp.Body))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/characters", got.path)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, `{"charId":"CT7567"}`, got.body)
	assert.Equal(t, "req-1", got.requestID)
	assert.Empty(t, got.auth)
}

func TestSend_Bearer(t *testing.T) {
	api, got := newAPI(t, 200, `{}`)

	_, err := api.Send(context.Background(), Request{
		Path:   "/account",
		Body:   model.AccountQuery{AllyCode: "123-456-789"},
		Bearer: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, `{"allyCode":"123-456-789"}`, got.body)
}

func TestSend_NonSuccessStatus(t *testing.T) {
	api, _ := newAPI(t, 400, `{"error":"charId cannot be empty"}`)

	resp, err := api.Send(context.Background(), Request{Path: "/characters", Body: model.CharacterQuery{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrBackendStatus))
	assert.Equal(t, 400, resp.Status)

	status, ok := apperrors.StatusOf(err)
	assert.True(t, ok)
	assert.Equal(t, 400, status)
}

func TestSend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	origin := srv.URL
	srv.Close()

	api, err := New(config.BackendConfig{Origin: origin, Timeout: time.Second, DialTimeout: 200 * time.Millisecond})
	require.NoError(t, err)

	_, err = api.Send(context.Background(), Request{Path: "/characters", Body: model.CharacterQuery{CharID: "x"}})
	assert.True(t, errors.Is(err, apperrors.ErrBackendUnavailable))
	assert.True(t, errors.Is(api.Ping(context.Background()), apperrors.ErrBackendUnavailable))
}

func TestPing(t *testing.T) {
	api, got := newAPI(t, 200, "Hello World")
	require.NoError(t, api.Ping(context.Background()))
	assert.Equal(t, http.MethodGet, got.method)
}

func TestSend_BodyKeepsMarkup(t *testing.T) {
	api, got := newAPI(t, 200, `{}`)

	_, err := api.Send(context.Background(), Request{
		Path: "/account",
		Body: model.AccountQuery{AllyCode: "<b>&1"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"allyCode":"<b>&1"}`, got.body)
}
