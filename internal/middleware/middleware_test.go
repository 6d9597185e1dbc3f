package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averho/banter/internal/auth"
)

func TestAuthMiddleware(t *testing.T) {
	signer := auth.NewSigner("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, 123, UserID(r))
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantStatus int
	}{
		{
			name:       "valid cookie",
			cookie:     &http.Cookie{Name: auth.CookieName, Value: signer.Sign("123")},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing cookie",
			cookie:     nil,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "tampered signature",
			cookie:     &http.Cookie{Name: auth.CookieName, Value: signer.Sign("123") + "x"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			cookie:     &http.Cookie{Name: auth.CookieName, Value: auth.NewSigner("other").Sign("123")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-numeric value",
			cookie:     &http.Cookie{Name: auth.CookieName, Value: signer.Sign("abc")},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			rr := httptest.NewRecorder()
			Auth(signer)(next).ServeHTTP(rr, req)
			require.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestSignerRoundTrip(t *testing.T) {
	signer := auth.NewSigner("test-secret")

	value, err := signer.Verify(signer.Sign("42"))
	require.NoError(t, err)
	assert.Equal(t, "42", value)
}
