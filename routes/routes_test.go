package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/volley-tournament/brackets"
	"github.com/Dosada05/volley-tournament/handlers"
	"github.com/Dosada05/volley-tournament/metrics"
	"github.com/Dosada05/volley-tournament/middleware"
	"github.com/Dosada05/volley-tournament/models"
	"github.com/Dosada05/volley-tournament/repositories"
	"github.com/Dosada05/volley-tournament/services"
	"github.com/Dosada05/volley-tournament/storage"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "routes-test-secret"
	organizerID = 1
)

type testApp struct {
	t      *testing.T
	store  *repositories.MemoryStore
	hub    *brackets.Hub
	router http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewMemoryStore()
	hub := brackets.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	archiver := storage.NewBracketArchiver(storage.NewMemoryUploader(""))

	tournamentService := services.NewTournamentService(store, store.Tournaments(), store.Teams(), store.JoinRequests(), store.Matches(), recorder, logger)
	bracketService := services.NewBracketService(store, store.Tournaments(), store.Matches(), archiver, hub, recorder, logger)
	matchService := services.NewMatchService(store, store.Tournaments(), store.Matches(), store.Teams(), hub, recorder, logger)

	router := chi.NewRouter()
	SetupRoutes(router, Dependencies{
		Authenticator:     middleware.NewAuthenticator(testSecret, logger),
		TournamentHandler: handlers.NewTournamentHandler(tournamentService, bracketService, matchService),
		WebSocketHandler:  handlers.NewWebSocketHandler(hub, tournamentService, nil, logger),
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigins:    []string{"*"},
	})

	return &testApp{t: t, store: store, hub: hub, router: router}
}

func (a *testApp) token(userID int, role models.UserRole) string {
	a.t.Helper()
	token, err := middleware.IssueToken(testSecret, userID, role, time.Hour)
	require.NoError(a.t, err)
	return token
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

// tournamentWithTeams creates a tournament over HTTP and accepts n teams (101..100+n).
func (a *testApp) tournamentWithTeams(n int, format models.TournamentFormat) int {
	a.t.Helper()
	orgToken := a.token(organizerID, models.RoleOrganizer)

	rec := a.do(http.MethodPost, "/tournaments", orgToken, map[string]interface{}{
		"name":        "City Cup",
		"start_date":  "2026-09-01T09:00:00Z",
		"end_date":    "2026-09-02T18:00:00Z",
		"number_team": n,
		"format":      format,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Tournament models.Tournament `json:"tournament"`
	}
	decode(a.t, rec, &created)
	id := created.Tournament.ID

	for i := 0; i < n; i++ {
		teamID := 101 + i
		leaderID := teamID * 10
		players := make([]int, models.MinTeamPlayers)
		for p := range players {
			players[p] = teamID*100 + p
		}
		a.store.PutTeam(&models.Team{ID: teamID, Name: fmt.Sprintf("Team %d", teamID), LeaderID: leaderID, PlayerIDs: players})

		rec = a.do(http.MethodPost, fmt.Sprintf("/tournaments/%d/join", id), a.token(leaderID, models.RolePlayer),
			map[string]int{"team_id": teamID})
		require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = a.do(http.MethodPut, fmt.Sprintf("/tournaments/%d/join", id), orgToken,
			map[string]interface{}{"team_id": teamID, "status": "accepted"})
		require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	}
	return id
}

type roundsResponse struct {
	Rounds map[string][]models.Match `json:"rounds"`
}

func TestTournamentLifecycle(t *testing.T) {
	app := newTestApp(t)
	orgToken := app.token(organizerID, models.RoleOrganizer)
	id := app.tournamentWithTeams(4, models.FormatSingleElimination)

	rec := app.do(http.MethodPost, fmt.Sprintf("/tournaments/%d/generate", id), app.token(1010, models.RolePlayer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, fmt.Sprintf("/tournaments/%d/generate", id), orgToken, map[string]interface{}{"max_sets": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var generated struct {
		Structure models.Structure `json:"structure"`
		Matches   []models.Match   `json:"matches"`
	}
	decode(t, rec, &generated)
	assert.Equal(t, 2, generated.Structure.Rounds)
	assert.Len(t, generated.Matches, 3)

	rec = app.do(http.MethodGet, fmt.Sprintf("/tournaments/%d/matches-by-round", id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rounds roundsResponse
	decode(t, rec, &rounds)
	require.Len(t, rounds.Rounds["1"], 2)
	require.Len(t, rounds.Rounds["2"], 1)
	semi := rounds.Rounds["1"][0]
	final := rounds.Rounds["2"][0]

	// лидер команды A первого матча
	rec = app.do(http.MethodPut, fmt.Sprintf("/tournaments/%d/matches/%d", id, semi.ID), app.token(1010, models.RolePlayer),
		map[string]interface{}{"sets": []map[string]int{{"team_a": 25, "team_b": 21}, {"team_a": 25, "team_b": 19}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Match   models.Match   `json:"match"`
		Changed []models.Match `json:"changed"`
		Reset   int            `json:"reset"`
	}
	decode(t, rec, &result)
	require.NotNil(t, result.Match.WinnerID)
	assert.Equal(t, 101, *result.Match.WinnerID)
	require.Len(t, result.Changed, 2)
	assert.Equal(t, final.ID, result.Changed[1].ID)
	assert.Equal(t, 101, *result.Changed[1].TeamAID)

	rec = app.do(http.MethodGet, fmt.Sprintf("/tournaments/%d", id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Tournament models.Tournament `json:"tournament"`
	}
	decode(t, rec, &got)
	assert.Equal(t, []int{101, 102, 103, 104}, got.Tournament.TeamIDs)
	assert.Len(t, got.Tournament.Matches, 3)
	assert.Len(t, got.Tournament.JoinRequests, 4)
}

func TestGenerateAllowedForAnyTournamentOrganizer(t *testing.T) {
	app := newTestApp(t)
	creator := app.token(3000, models.RolePlayer)

	rec := app.do(http.MethodPost, "/tournaments", creator, map[string]interface{}{
		"name":        "Club Night",
		"start_date":  "2026-10-01T18:00:00Z",
		"end_date":    "2026-10-01T23:00:00Z",
		"number_team": 2,
		"format":      models.FormatSingleElimination,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Tournament models.Tournament `json:"tournament"`
	}
	decode(t, rec, &created)
	id := created.Tournament.ID

	for _, teamID := range []int{101, 102} {
		players := make([]int, models.MinTeamPlayers)
		for p := range players {
			players[p] = teamID*100 + p
		}
		app.store.PutTeam(&models.Team{ID: teamID, Name: fmt.Sprintf("Team %d", teamID), LeaderID: teamID * 10, PlayerIDs: players})
		rec = app.do(http.MethodPost, fmt.Sprintf("/tournaments/%d/join", id), app.token(teamID*10, models.RolePlayer),
			map[string]int{"team_id": teamID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		rec = app.do(http.MethodPut, fmt.Sprintf("/tournaments/%d/join", id), creator,
			map[string]interface{}{"team_id": teamID, "status": "accepted"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	// администратор, не организующий турнир
	rec = app.do(http.MethodPost, fmt.Sprintf("/tournaments/%d/generate", id), app.token(9000, models.RoleAdmin), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = app.do(http.MethodPost, fmt.Sprintf("/tournaments/%d/generate", id), creator, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestErrorMapping(t *testing.T) {
	app := newTestApp(t)
	orgToken := app.token(organizerID, models.RoleOrganizer)
	id := app.tournamentWithTeams(4, models.FormatSingleElimination)
	other := app.tournamentWithTeams(2, models.FormatSingleElimination)

	rec := app.do(http.MethodPost, fmt.Sprintf("/tournaments/%d/generate", id), orgToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(http.MethodGet, fmt.Sprintf("/tournaments/%d/matches-by-round", id), "", nil)
	var rounds roundsResponse
	decode(t, rec, &rounds)
	first := rounds.Rounds["1"][0]
	final := rounds.Rounds["2"][0]

	twoSets := map[string]interface{}{"sets": []map[string]int{{"team_a": 25, "team_b": 10}, {"team_a": 25, "team_b": 10}}}

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
	}{
		{name: "missing token", method: http.MethodPost, path: "/tournaments", body: map[string]string{"name": "x"}, wantStatus: http.StatusUnauthorized},
		{name: "malformed body", method: http.MethodPost, path: "/tournaments", token: orgToken, body: `{"name":`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/tournaments", token: orgToken, body: `{"title":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "validation", method: http.MethodPost, path: "/tournaments", token: orgToken, body: map[string]string{"name": "x"}, wantStatus: http.StatusBadRequest},
		{name: "bad id", method: http.MethodGet, path: "/tournaments/abc", wantStatus: http.StatusBadRequest},
		{name: "unknown tournament", method: http.MethodGet, path: "/tournaments/999", wantStatus: http.StatusNotFound},
		{name: "undecided result", method: http.MethodPut, path: fmt.Sprintf("/tournaments/%d/matches/%d", id, first.ID), token: orgToken,
			body: map[string]interface{}{"sets": []map[string]int{{"team_a": 25, "team_b": 10}}}, wantStatus: http.StatusBadRequest},
		{name: "teams missing", method: http.MethodPut, path: fmt.Sprintf("/tournaments/%d/matches/%d", id, final.ID), token: orgToken,
			body: twoSets, wantStatus: http.StatusConflict},
		{name: "match of another tournament", method: http.MethodPut, path: fmt.Sprintf("/tournaments/%d/matches/%d", other, first.ID), token: orgToken,
			body: twoSets, wantStatus: http.StatusNotFound},
		{name: "stranger submits", method: http.MethodPut, path: fmt.Sprintf("/tournaments/%d/matches/%d", id, first.ID), token: app.token(5555, models.RolePlayer),
			body: twoSets, wantStatus: http.StatusForbidden},
		{name: "tournament full", method: http.MethodPost, path: fmt.Sprintf("/tournaments/%d/join", id), token: app.token(1010, models.RolePlayer),
			body: map[string]int{"team_id": 101}, wantStatus: http.StatusConflict},
		{name: "non-positive team id", method: http.MethodPost, path: fmt.Sprintf("/tournaments/%d/join", id), token: app.token(1010, models.RolePlayer),
			body: map[string]int{"team_id": 0}, wantStatus: http.StatusBadRequest},
		{name: "assign into single elimination first round", method: http.MethodPut, path: fmt.Sprintf("/tournaments/%d/matches/%d/teams", id, first.ID), token: orgToken,
			body: map[string]int{"team_a_id": 101, "team_b_id": 102}, wantStatus: http.StatusConflict},
		{name: "standings without groups", method: http.MethodGet, path: fmt.Sprintf("/tournaments/%d/standings", id), wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			var env map[string]interface{}
			decode(t, rec, &env)
			assert.Contains(t, env, "error")
		})
	}
}

func TestQuickMatchResult(t *testing.T) {
	app := newTestApp(t)
	app.store.PutTeam(&models.Team{ID: 7, LeaderID: 70, PlayerIDs: []int{1, 2, 3, 4, 5, 6}})
	app.store.PutTeam(&models.Team{ID: 8, LeaderID: 80, PlayerIDs: []int{7, 8, 9, 10, 11, 12}})
	a, b := 7, 8
	quick := &models.Match{
		Kind:        models.MatchKindQuick,
		TeamAID:     &a,
		TeamBID:     &b,
		MaxSets:     3,
		TerrainType: models.TerrainBeach,
		Status:      models.StatusScheduled,
		Quick:       &models.QuickMatchInfo{CreatorID: 99},
	}
	require.NoError(t, app.store.Matches().Create(context.Background(), nil, quick))

	rec := app.do(http.MethodPut, fmt.Sprintf("/matches/%d", quick.ID), app.token(80, models.RolePlayer),
		map[string]interface{}{"sets": []map[string]int{{"team_a": 21, "team_b": 25}, {"team_a": 23, "team_b": 25}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Match models.Match `json:"match"`
	}
	decode(t, rec, &result)
	assert.Equal(t, 8, *result.Match.WinnerID)
	assert.Equal(t, models.MatchStatusCompleted, result.Match.Status)
}

func TestServiceEndpoints(t *testing.T) {
	app := newTestApp(t)
	app.tournamentWithTeams(2, models.FormatSingleElimination)

	rec := app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `volley_tournament_join_requests_handled_total{status="accepted"} 2`)

	rec = app.do(http.MethodGet, "/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]interface{}
	decode(t, rec, &doc)
	assert.Equal(t, "2.0", doc["swagger"])
}

func TestWebSocketReceivesBracketUpdates(t *testing.T) {
	app := newTestApp(t)
	id := app.tournamentWithTeams(2, models.FormatSingleElimination)

	server := httptest.NewServer(app.router)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/ws/tournaments/999", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s/ws/tournaments/%d", wsURL, id), nil)
	require.NoError(t, err)
	defer conn.Close()

	room := brackets.TournamentRoom(id)
	require.Eventually(t, func() bool { return app.hub.RoomSize(room) == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := app.do(http.MethodPost, fmt.Sprintf("/tournaments/%d/generate", id), app.token(organizerID, models.RoleOrganizer), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string `json:"type"`
		RoomID  string `json:"room_id"`
		Payload struct {
			TournamentID int            `json:"tournament_id"`
			Matches      []models.Match `json:"matches"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, brackets.MessageBracketUpdated, msg.Type)
	assert.Equal(t, room, msg.RoomID)
	assert.Equal(t, id, msg.Payload.TournamentID)
	assert.Len(t, msg.Payload.Matches, 1)
}
