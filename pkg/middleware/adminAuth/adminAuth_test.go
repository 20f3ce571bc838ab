package adminAuth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"trainer-booking/pkg/response"

	"github.com/stretchr/testify/assert"
)

type authFunc func(ctx context.Context, token string) (string, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

var auth = authFunc(func(_ context.Context, token string) (string, error) {
	switch token {
	case "good":
		return "admin@x.com", nil
	case "broken":
		return "", errors.New("redis: i/o timeout")
	}
	return "", response.ErrUnauthorized
})

func echoEmail(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, Email(r.Context()))
}

func request(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearerabc":    "",
	}

	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(req), header)
	}
}

func TestNew(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(log, auth)(http.HandlerFunc(echoEmail))

	rec := request(h, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@x.com", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, request(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(h, "Bearer bad").Code)
	assert.Equal(t, http.StatusInternalServerError, request(h, "Bearer broken").Code)
}

func TestOptional(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Optional(log, auth)(http.HandlerFunc(echoEmail))

	rec := request(h, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = request(h, "Bearer good")
	assert.Equal(t, "admin@x.com", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, request(h, "Bearer bad").Code)
}
