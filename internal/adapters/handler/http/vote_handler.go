package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
	"go.uber.org/zap"
)

type VoteHandler struct {
	access ports.AccessService
	votes  ports.VoteService
	logger *zap.Logger
}

func NewVoteHandler(access ports.AccessService, votes ports.VoteService, logger *zap.Logger) *VoteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoteHandler{
		access: access,
		votes:  votes,
		logger: logger,
	}
}

type joinRequest struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

type voteRequest struct {
	CandidateID uuid.UUID `json:"candidate_id"`
}

type publicCandidate struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
}

// publicContest is what participants see: no access code, no counts.
type publicContest struct {
	ID            uuid.UUID          `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Type          domain.ContestType `json:"type"`
	Venue         string             `json:"venue,omitempty"`
	OrganizerName string             `json:"organizer_name,omitempty"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       time.Time          `json:"end_date"`
	IsActive      bool               `json:"is_active"`
	Candidates    []publicCandidate  `json:"candidates"`
}

type joinResponse struct {
	Contest       publicContest         `json:"contest"`
	Participation *domain.Participation `json:"participation"`
}

type myVoteResponse struct {
	HasVoted    bool       `json:"has_voted"`
	CandidateID *uuid.UUID `json:"candidate_id,omitempty"`
	VotedAt     *time.Time `json:"voted_at,omitempty"`
}

// JoinContest godoc
// @Summary      Joins a contest by access code
// @Description  Codes are case-insensitive. Joining twice returns the same participation.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      404
// @Failure      409
// @Router       /api/join [post]
func (h *VoteHandler) JoinContest(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = identity.Name
	}
	contest, participation, err := h.access.Join(r.Context(), ports.JoinInput{
		Code:          req.Code,
		ParticipantID: identity.ID,
		DisplayName:   displayName,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, joinResponse{
		Contest:       toPublicContest(contest),
		Participation: participation,
	})
}

func (h *VoteHandler) VoteOnContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, domain.ErrInvalidContestID)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, ok := identityFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return
	}

	input := ports.VoteInput{
		ContestID:     contestID,
		ParticipantID: identity.ID,
		CandidateID:   req.CandidateID,
	}
	if err := h.votes.CastVote(r.Context(), input); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *VoteHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	contestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, domain.ErrInvalidContestID)
		return
	}

	identity, ok := identityFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return
	}

	p, err := h.votes.MyVote(r.Context(), contestID, identity.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, myVoteResponse{
		HasVoted:    p.HasVoted,
		CandidateID: p.VotedCandidateID,
		VotedAt:     p.VotedAt,
	})
}

func toPublicContest(c *domain.Contest) publicContest {
	view := publicContest{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Type:          c.Type,
		Venue:         c.Venue,
		OrganizerName: c.OrganizerName,
		StartDate:     c.StartDate,
		EndDate:       c.EndDate,
		IsActive:      c.IsActive,
		Candidates:    make([]publicCandidate, 0, len(c.Candidates)),
	}
	for _, cand := range c.Candidates {
		view.Candidates = append(view.Candidates, publicCandidate{
			ID:          cand.ID,
			Name:        cand.Name,
			Description: cand.Description,
			Category:    cand.Category,
		})
	}
	return view
}

func sortParticipants(ps []participantView) {
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].JoinedAt.Before(ps[j].JoinedAt)
	})
}
