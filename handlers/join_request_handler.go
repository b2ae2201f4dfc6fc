package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/volley-tournament/models"
)

type createJoinRequestRequest struct {
	TeamID int `json:"team_id"`
}

type handleJoinRequestRequest struct {
	TeamID int                      `json:"team_id"`
	Status models.JoinRequestStatus `json:"status"`
}

// CreateJoinRequestHandler обрабатывает POST /tournaments/{tournamentID}/join
func (h *TournamentHandler) CreateJoinRequestHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to apply for a tournament")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input createJoinRequestRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TeamID <= 0 {
		badRequestResponse(w, r, errors.New("team_id must be a positive integer"))
		return
	}

	jr, err := h.tournamentService.CreateJoinRequest(r.Context(), actor, tournamentID, input.TeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"join_request": jr}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// HandleJoinRequestHandler обрабатывает PUT /tournaments/{tournamentID}/join
func (h *TournamentHandler) HandleJoinRequestHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to handle join requests")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input handleJoinRequestRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TeamID <= 0 {
		badRequestResponse(w, r, errors.New("team_id must be a positive integer"))
		return
	}

	jr, err := h.tournamentService.HandleJoinRequest(r.Context(), actor, tournamentID, input.TeamID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"join_request": jr}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
