package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/volley-tournament/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "not found", err: services.ErrMatchNotFound, wantStatus: http.StatusNotFound},
		{name: "validation", err: fmt.Errorf("%w: 1-1 in sets", services.ErrMatchUndecided), wantStatus: http.StatusBadRequest},
		{name: "precondition", err: services.ErrTournamentFull, wantStatus: http.StatusConflict},
		{name: "forbidden", err: services.ErrOrganizerRequired, wantStatus: http.StatusForbidden},
		{
			name:        "bracket inconsistent",
			err:         fmt.Errorf("%w: match 3: broken link", services.ErrBracketInconsistent),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "the server encountered a problem and could not process your request",
		},
		{
			name:        "unexpected",
			err:         errors.New("connection reset"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "the server encountered a problem and could not process your request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			want := tt.wantMessage
			if want == "" {
				want = tt.err.Error()
			}
			assert.JSONEq(t, fmt.Sprintf(`{"error": %q}`, want), rec.Body.String())
		})
	}
}

func TestReadJSON(t *testing.T) {
	type payload struct {
		TeamID int `json:"team_id"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"team_id": 4}`},
		{name: "empty", body: ``, wantErr: "body must not be empty"},
		{name: "syntax", body: `{"team_id": }`, wantErr: "badly-formed JSON"},
		{name: "wrong type", body: `{"team_id": "four"}`, wantErr: `incorrect JSON type for field "team_id"`},
		{name: "unknown key", body: `{"team": 4}`, wantErr: `unknown key "team"`},
		{name: "two values", body: `{"team_id": 4}{"team_id": 5}`, wantErr: "single JSON value"},
		{name: "too large", body: `{"team_id": 4, "x": "` + strings.Repeat("a", maxBodyBytes) + `"}`, wantErr: "must not be larger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := readJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 4, dst.TeamID)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
