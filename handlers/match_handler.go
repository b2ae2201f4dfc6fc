package handlers

import (
	"net/http"
	"strconv"

	"github.com/Dosada05/volley-tournament/models"
	"github.com/Dosada05/volley-tournament/services"
	"github.com/go-chi/chi/v5"
)

// MatchesByRoundHandler обрабатывает GET /tournaments/{tournamentID}/matches-by-round
func (h *TournamentHandler) MatchesByRoundHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	byRound, err := h.matchService.MatchesByRound(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// JSON-ключи объекта - строки
	rounds := make(map[string][]*models.Match, len(byRound))
	for round, matches := range byRound {
		rounds[strconv.Itoa(round)] = matches
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rounds": rounds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler обрабатывает GET /tournaments/{tournamentID}/standings
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.matchService.GroupStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type submitResultRequest struct {
	Sets []models.SetScore `json:"sets"`
}

// SubmitResultHandler обрабатывает PUT /tournaments/{tournamentID}/matches/{matchID}
// и PUT /matches/{matchID} (товарищеские матчи).
func (h *TournamentHandler) SubmitResultHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to submit a result")
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	tournamentID := 0
	if chi.URLParam(r, "tournamentID") != "" {
		if tournamentID, err = getIDFromURL(r, "tournamentID"); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	var input submitResultRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if tournamentID != 0 {
		// Матч из пути должен принадлежать турниру из пути.
		match, err := h.matchService.GetMatch(r.Context(), matchID)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if match.Bracket == nil || match.Bracket.TournamentID != tournamentID {
			mapServiceErrorToHTTP(w, r, services.ErrMatchNotInTournament)
			return
		}
	}

	result, err := h.matchService.SubmitMatchResult(r.Context(), actor, matchID, input.Sets)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{
		"match":   result.Match,
		"changed": result.Changed,
		"reset":   result.Reset,
	}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type assignTeamsRequest struct {
	TeamAID int `json:"team_a_id"`
	TeamBID int `json:"team_b_id"`
}

// AssignTeamsHandler обрабатывает PUT /tournaments/{tournamentID}/matches/{matchID}/teams
func (h *TournamentHandler) AssignTeamsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to assign teams")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input assignTeamsRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.bracketService.AssignMatchTeams(r.Context(), actor, tournamentID, matchID, input.TeamAID, input.TeamBID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
