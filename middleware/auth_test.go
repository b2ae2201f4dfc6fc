package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/volley-tournament/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestAuthenticator() *Authenticator {
	return NewAuthenticator(testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAuthenticate(t *testing.T) {
	valid, err := IssueToken(testSecret, 7, models.RoleOrganizer, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, 7, models.RoleOrganizer, -time.Hour)
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", 7, models.RoleOrganizer, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 7, "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "no header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "signed with another secret", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "unsigned", header: "Bearer " + none, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID int
			var gotRole models.UserRole
			h := newTestAuthenticator().Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var err error
				gotID, gotRole, err = GetIdentityFromContext(r.Context())
				require.NoError(t, err)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, 7, gotID)
				assert.Equal(t, models.RoleOrganizer, gotRole)
			} else {
				assert.JSONEq(t, `{"error":"invalid or missing authentication token"}`, rec.Body.String())
			}
		})
	}
}

func TestGetUserIDFromContextRejectsBadClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{name: "missing", claims: jwt.MapClaims{"role": "player"}},
		{name: "fractional", claims: jwt.MapClaims{"user_id": 1.5}},
		{name: "negative", claims: jwt.MapClaims{"user_id": float64(-4)}},
		{name: "not a number", claims: jwt.MapClaims{"user_id": "abc"}},
		{name: "bool", claims: jwt.MapClaims{"user_id": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := req.Context()
			ctx = contextWithClaims(ctx, tt.claims)
			_, err := GetUserIDFromContext(ctx)
			assert.Error(t, err)
		})
	}

	_, err := GetUserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.ErrorIs(t, err, errNoClaims)

	id, err := GetUserIDFromContext(contextWithClaims(httptest.NewRequest(http.MethodGet, "/", nil).Context(), jwt.MapClaims{"user_id": "12"}))
	require.NoError(t, err)
	assert.Equal(t, 12, id)
}
