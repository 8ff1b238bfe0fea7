package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"team-governance/internal/domain"
	"team-governance/internal/middleware"
	"team-governance/internal/service"
	apperrors "team-governance/pkg/errors"
	"team-governance/pkg/logger"
)

// maxBodyBytes bounds request bodies, which are all small JSON objects
const maxBodyBytes = 1 << 16

// TeamHandler exposes the governance operations over HTTP. Every route
// expects an authenticated principal in the request context.
type TeamHandler struct {
	teams    service.TeamOperations
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTeamHandler(teams service.TeamOperations, logger *logger.Logger) *TeamHandler {
	return &TeamHandler{
		teams:    teams,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type createTeamRequest struct {
	Name string  `json:"name" validate:"required,max=64"`
	ID   *uint64 `json:"id" validate:"required"`
}

type memberRequest struct {
	Member string `json:"member" validate:"required"`
}

type initEventRequest struct {
	EventID string `json:"event_id" validate:"required,max=128"`
	Prize   uint64 `json:"prize"`
}

type voteRequest struct {
	Vote string `json:"vote" validate:"required"`
}

type percentagesRequest struct {
	Percentages []int `json:"percentages" validate:"required,min=1,max=5,dive,gte=0,lte=255"`
}

type claimRequest struct {
	Amount uint64 `json:"amount" validate:"required"`
}

type eligibilityResponse struct {
	Team     domain.TeamKey `json:"team"`
	Eligible bool           `json:"eligible"`
}

// RegisterRoutes registers team routes with the router
func (h *TeamHandler) RegisterRoutes(r chi.Router) {
	r.Route("/teams", func(r chi.Router) {
		r.Post("/", h.CreateTeam)

		r.Route("/{name}/{id}", func(r chi.Router) {
			r.Get("/", h.GetTeam)

			r.Post("/members", h.AddMember)
			r.Delete("/members/{member}", h.RemoveMember)
			r.Post("/captain", h.TransferCaptain)
			r.Post("/leave", h.LeaveTeam)

			r.Post("/event", h.InitEvent)
			r.Post("/event/votes", h.VoteForEvent)
			r.Post("/event/leave-votes", h.VoteToLeaveEvent)

			r.Post("/distribution", h.ProposePercentages)
			r.Post("/distribution/votes", h.VoteOnDistribution)

			r.Post("/eligibility", h.CanJoinTournament)
			r.Post("/rewards/claim", h.ClaimReward)
		})
	})
}

// CreateTeam handles POST /api/teams
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req createTeamRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.teams.CreateTeam(r.Context(), caller, domain.TeamKey{Name: req.Name, ID: *req.ID})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, view)
}

// GetTeam handles GET /api/teams/{name}/{id}
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	key, ok := h.teamKey(w, r)
	if !ok {
		return
	}

	view, err := h.teams.GetTeam(r.Context(), key)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// AddMember handles POST /api/teams/{name}/{id}/members
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	h.memberOperation(w, r, h.teams.AddMember)
}

// RemoveMember handles DELETE /api/teams/{name}/{id}/members/{member}
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, key, ok := h.target(w, r)
	if !ok {
		return
	}

	view, err := h.teams.RemoveMember(r.Context(), caller, key, chi.URLParam(r, "member"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// TransferCaptain handles POST /api/teams/{name}/{id}/captain
func (h *TeamHandler) TransferCaptain(w http.ResponseWriter, r *http.Request) {
	h.memberOperation(w, r, h.teams.TransferCaptain)
}

// LeaveTeam handles POST /api/teams/{name}/{id}/leave
func (h *TeamHandler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	caller, key, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.teams.LeaveTeam(r.Context(), caller, key); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InitEvent handles POST /api/teams/{name}/{id}/event
func (h *TeamHandler) InitEvent(w http.ResponseWriter, r *http.Request) {
	caller, key, ok := h.target(w, r)
	if !ok {
		return
	}

	var req initEventRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.teams.InitEvent(r.Context(), caller, key, req.EventID, req.Prize)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// VoteForEvent handles POST /api/teams/{name}/{id}/event/votes
func (h *TeamHandler) VoteForEvent(w http.ResponseWriter, r *http.Request) {
	h.voteOperation(w, r, h.teams.VoteForEvent)
}

// VoteToLeaveEvent handles POST /api/teams/{name}/{id}/event/leave-votes
func (h *TeamHandler) VoteToLeaveEvent(w http.ResponseWriter, r *http.Request) {
	h.voteOperation(w, r, h.teams.VoteToLeaveEvent)
}

// ProposePercentages handles POST /api/teams/{name}/{id}/distribution
func (h *TeamHandler) ProposePercentages(w http.ResponseWriter, r *http.Request) {
	caller, key, ok := h.target(w, r)
	if !ok {
		return
	}

	var req percentagesRequest
	if !h.decode(w, r, &req) {
		return
	}

	percentages := make([]uint8, len(req.Percentages))
	for i, p := range req.Percentages {
		percentages[i] = uint8(p)
	}

	view, err := h.teams.ProposePercentages(r.Context(), caller, key, percentages)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// VoteOnDistribution handles POST /api/teams/{name}/{id}/distribution/votes
func (h *TeamHandler) VoteOnDistribution(w http.ResponseWriter, r *http.Request) {
	h.voteOperation(w, r, h.teams.VoteOnDistribution)
}

// CanJoinTournament handles POST /api/teams/{name}/{id}/eligibility. Any
// authenticated caller may refresh the flag.
func (h *TeamHandler) CanJoinTournament(w http.ResponseWriter, r *http.Request) {
	_, key, ok := h.target(w, r)
	if !ok {
		return
	}

	eligible, err := h.teams.CanJoinTournament(r.Context(), key)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, eligibilityResponse{Team: key, Eligible: eligible})
}

// ClaimReward handles POST /api/teams/{name}/{id}/rewards/claim
func (h *TeamHandler) ClaimReward(w http.ResponseWriter, r *http.Request) {
	caller, key, ok := h.target(w, r)
	if !ok {
		return
	}

	var req claimRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.teams.ClaimReward(r.Context(), caller, key, req.Amount)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

type memberFunc func(ctx context.Context, caller domain.Identity, key domain.TeamKey, member domain.Identity) (*domain.TeamView, error)

func (h *TeamHandler) memberOperation(w http.ResponseWriter, r *http.Request, op memberFunc) {
	caller, key, ok := h.target(w, r)
	if !ok {
		return
	}

	var req memberRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := op(r.Context(), caller, key, req.Member)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

type voteFunc func(ctx context.Context, caller domain.Identity, key domain.TeamKey, choice domain.VoteChoice) (*domain.VoteOutcome, error)

func (h *TeamHandler) voteOperation(w http.ResponseWriter, r *http.Request, op voteFunc) {
	caller, key, ok := h.target(w, r)
	if !ok {
		return
	}

	var req voteRequest
	if !h.decode(w, r, &req) {
		return
	}
	choice := domain.VoteChoice(strings.ToLower(strings.TrimSpace(req.Vote)))

	outcome, err := op(r.Context(), caller, key, choice)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, outcome)
}

func (h *TeamHandler) target(w http.ResponseWriter, r *http.Request) (domain.Identity, domain.TeamKey, bool) {
	caller, ok := h.caller(w, r)
	if !ok {
		return "", domain.TeamKey{}, false
	}
	key, ok := h.teamKey(w, r)
	if !ok {
		return "", domain.TeamKey{}, false
	}
	return caller, key, true
}

func (h *TeamHandler) caller(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, apperrors.NewAuthenticationError("Authentication required"), h.logger)
		return "", false
	}
	return principal.ID, true
}

func (h *TeamHandler) teamKey(w http.ResponseWriter, r *http.Request) (domain.TeamKey, bool) {
	name := chi.URLParam(r, "name")
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if name == "" || err != nil {
		middleware.WriteError(w, r, apperrors.NewValidationError("Invalid team address", map[string]interface{}{
			"name": name,
			"id":   chi.URLParam(r, "id"),
		}), h.logger)
		return domain.TeamKey{}, false
	}
	return domain.TeamKey{Name: name, ID: id}, true
}

// decode reads a JSON body into dst and validates it
func (h *TeamHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		middleware.WriteError(w, r, apperrors.NewValidationError("Invalid request body", map[string]interface{}{
			"reason": err.Error(),
		}), h.logger)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		details := map[string]interface{}{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		middleware.WriteError(w, r, apperrors.NewValidationError("Request validation failed", details), h.logger)
		return false
	}
	return true
}

func (h *TeamHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *TeamHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteError(w, r, apperrors.FromDomain(err), h.logger)
}
