package http

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
	"go.uber.org/zap"
)

const qrCodeSize = 256

type ContestHandler struct {
	service   ports.ContestService
	tally     ports.TallyService
	publicURL string
	logger    *zap.Logger
}

func NewContestHandler(service ports.ContestService, tally ports.TallyService, publicURL string, logger *zap.Logger) *ContestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContestHandler{
		service:   service,
		tally:     tally,
		publicURL: publicURL,
		logger:    logger,
	}
}

type candidateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type createContestRequest struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Type          string             `json:"type"`
	Venue         string             `json:"venue"`
	OrganizerName string             `json:"organizer_name"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       time.Time          `json:"end_date"`
	Candidates    []candidateRequest `json:"candidates"`
}

type updateContestRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Type        *string    `json:"type"`
	Venue       *string    `json:"venue"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

type participantView struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	DisplayName   string    `json:"display_name,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
	HasVoted      bool      `json:"has_voted"`
}

// organizerView is the full contest as shown on the organizer dashboard.
type organizerView struct {
	*domain.Contest
	TotalVotes   int64             `json:"total_votes"`
	Participants []participantView `json:"participants"`
	JoinURL      string            `json:"join_url"`
}

// CreateContest godoc
// @Summary      Creates a contest
// @Description  The caller becomes the organizer. The contest starts inactive with a fresh access code.
// @Tags         contests
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Router       /api/contests [post]
func (h *ContestHandler) CreateContest(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return
	}

	var req createContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	organizerName := req.OrganizerName
	if organizerName == "" {
		organizerName = identity.Name
	}
	input := ports.CreateContestInput{
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		Venue:         req.Venue,
		OrganizerID:   identity.ID,
		OrganizerName: organizerName,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	}
	for _, c := range req.Candidates {
		input.Candidates = append(input.Candidates, ports.CandidateInput(c))
	}

	contest, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.organizerView(contest))
}

func (h *ContestHandler) ListContests(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return
	}

	contests, err := h.service.ListByOrganizer(r.Context(), identity.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	views := make([]organizerView, 0, len(contests))
	for _, c := range contests {
		views = append(views, h.organizerView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ContestHandler) GetContest(w http.ResponseWriter, r *http.Request) {
	contest, ok := h.ownedContest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.organizerView(contest))
}

func (h *ContestHandler) UpdateContest(w http.ResponseWriter, r *http.Request) {
	contest, ok := h.ownedContest(w, r)
	if !ok {
		return
	}

	var req updateContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.UpdateDetails(r.Context(), contest.ID, ports.UpdateContestInput(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.organizerView(updated))
}

func (h *ContestHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	contest, ok := h.ownedContest(w, r)
	if !ok {
		return
	}

	var req candidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.AddCandidate(r.Context(), contest.ID, ports.CandidateInput(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.organizerView(updated))
}

func (h *ContestHandler) ActivateContest(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.Activate)
}

func (h *ContestHandler) DeactivateContest(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.Deactivate)
}

func (h *ContestHandler) DeleteContest(w http.ResponseWriter, r *http.Request) {
	contest, ok := h.ownedContest(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), contest.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetResults godoc
// @Summary      Returns the tally of a contest
// @Description  Only the organizer sees vote counts. Candidates keep their insertion order.
// @Tags         contests
// @Produce      json
// @Success      200
// @Failure      403
// @Failure      404
// @Router       /api/contests/{id}/results [get]
func (h *ContestHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	contest, ok := h.ownedContest(w, r)
	if !ok {
		return
	}

	results, err := h.tally.GetResults(r.Context(), contest.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// GetQRCode renders the join link of a contest as a downloadable PNG.
func (h *ContestHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	contest, ok := h.ownedContest(w, r)
	if !ok {
		return
	}

	png, err := qrcode.Encode(h.joinURL(contest), qrcode.Medium, qrCodeSize)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": contest.Title + "-QRCode.png",
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *ContestHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (*domain.Contest, error)) {
	contest, ok := h.ownedContest(w, r)
	if !ok {
		return
	}

	updated, err := fn(r.Context(), contest.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.organizerView(updated))
}

// ownedContest loads the contest named in the URL and makes sure the caller
// organizes it. It writes the error response itself.
func (h *ContestHandler) ownedContest(w http.ResponseWriter, r *http.Request) (*domain.Contest, bool) {
	identity, ok := identityFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, domain.ErrInvalidContestID)
		return nil, false
	}

	contest, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	if contest.OrganizerID != identity.ID {
		writeError(w, h.logger, domain.ErrForbidden)
		return nil, false
	}
	return contest, true
}

func (h *ContestHandler) organizerView(c *domain.Contest) organizerView {
	view := organizerView{
		Contest:      c,
		TotalVotes:   c.TotalVotes(),
		Participants: make([]participantView, 0, len(c.Participants)),
		JoinURL:      h.joinURL(c),
	}
	for _, p := range c.Participants {
		view.Participants = append(view.Participants, participantView{
			ParticipantID: p.ParticipantID,
			DisplayName:   p.DisplayName,
			JoinedAt:      p.JoinedAt,
			HasVoted:      p.HasVoted,
		})
	}
	sortParticipants(view.Participants)
	return view
}

func (h *ContestHandler) joinURL(c *domain.Contest) string {
	q := url.Values{}
	q.Set("code", c.AccessCode)
	q.Set("id", c.ID.String())
	return h.publicURL + "/join-contest?" + q.Encode()
}
