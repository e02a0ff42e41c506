package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"groupbet/internal/auth"
	"groupbet/internal/models"
	"groupbet/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WagerHandler struct {
	wagerService *services.WagerService
}

func NewWagerHandler(wagerService *services.WagerService) *WagerHandler {
	return &WagerHandler{
		wagerService: wagerService,
	}
}

// respondError maps the domain error taxonomy onto HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func wagerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wager id"})
		return uuid.Nil, false
	}
	return id, true
}

// CreateWager creates a new wager
// POST /api/wagers
func (h *WagerHandler) CreateWager(c *gin.Context) {
	creatorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wager, err := h.wagerService.CreateWager(c.Request.Context(), creatorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, wager)
}

// GetWager retrieves a wager by ID
// GET /api/wagers/:id
func (h *WagerHandler) GetWager(c *gin.Context) {
	id, ok := wagerID(c)
	if !ok {
		return
	}

	wager, err := h.wagerService.GetWager(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wager)
}

// JoinWager places a stake on a wager
// POST /api/wagers/:id/join
func (h *WagerHandler) JoinWager(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	var req models.JoinWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participation, err := h.wagerService.JoinWager(c.Request.Context(), id, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, participation)
}

// ResolveWager directly resolves a wager
// POST /api/wagers/:id/resolve
func (h *WagerHandler) ResolveWager(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	var req models.ResolveWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wager, err := h.wagerService.Resolve(c.Request.Context(), id, actorID, req.Outcome, req.Rationale)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wager)
}

// ResolveByWinners resolves a prediction wager by naming winners
// POST /api/wagers/:id/resolve-winners
func (h *WagerHandler) ResolveByWinners(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	var req models.ResolveByWinnersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wager, err := h.wagerService.ResolveByWinners(c.Request.Context(), id, actorID, req.WinnerUserIDs, req.Rationale)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wager)
}

// Vote casts an outcome-consensus vote
// POST /api/wagers/:id/vote
func (h *WagerHandler) Vote(c *gin.Context) {
	voterID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wager, err := h.wagerService.Vote(c.Request.Context(), id, voterID, req.Outcome, req.Rationale)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wager)
}

// VoteOnPrediction casts a per-participant correctness vote
// POST /api/wagers/:id/vote-prediction
func (h *WagerHandler) VoteOnPrediction(c *gin.Context) {
	voterID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	var req models.PredictionVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participationID, err := uuid.Parse(req.ParticipationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participation id"})
		return
	}

	wager, err := h.wagerService.VoteOnPrediction(c.Request.Context(), id, voterID, participationID, *req.IsCorrect)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wager)
}

// VoteOnPredictionByWinners casts a winner-selection vote
// POST /api/wagers/:id/vote-winners
func (h *WagerHandler) VoteOnPredictionByWinners(c *gin.Context) {
	voterID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	var req models.WinnersVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wager, err := h.wagerService.VoteOnPredictionByWinners(c.Request.Context(), id, voterID, req.WinnerUserIDs, req.Rationale)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wager)
}

// CancelWager cancels a wager and refunds all stakes
// POST /api/wagers/:id/cancel
func (h *WagerHandler) CancelWager(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	var req models.CancelWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.wagerService.Cancel(c.Request.Context(), id, actorID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// AssignResolver assigns a resolver to a wager
// POST /api/wagers/:id/resolvers
func (h *WagerHandler) AssignResolver(c *gin.Context) {
	assignerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	var req models.AssignResolverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment, err := h.wagerService.AssignResolver(c.Request.Context(), id, assignerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// RevokeResolver revokes a resolver assignment
// DELETE /api/wagers/:id/resolvers/:userId
func (h *WagerHandler) RevokeResolver(c *gin.Context) {
	revokerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	resolverID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resolver id"})
		return
	}

	if err := h.wagerService.RevokeResolver(c.Request.Context(), id, revokerID, uint(resolverID)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// CanResolve reports whether the caller may directly resolve the wager
// GET /api/wagers/:id/can-resolve
func (h *WagerHandler) CanResolve(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := wagerID(c)
	if !ok {
		return
	}

	canResolve, err := h.wagerService.CanResolve(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"can_resolve": canResolve})
}

// GetVoteCounts returns the current outcome-vote tally
// GET /api/wagers/:id/votes
func (h *WagerHandler) GetVoteCounts(c *gin.Context) {
	id, ok := wagerID(c)
	if !ok {
		return
	}

	counts, err := h.wagerService.GetVoteCounts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}
