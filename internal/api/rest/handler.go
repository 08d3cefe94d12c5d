package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quest-chains/qc-indexer/internal/domain"
	"github.com/quest-chains/qc-indexer/internal/store"
	"github.com/quest-chains/qc-indexer/internal/store/schema"
)

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// GetQuestChain retrieves a single quest chain by contract address
	// GET /api/v1/chains/:address
	GetQuestChain(c *gin.Context)

	// ListQuestChains retrieves quest chains with optional network filter
	// GET /api/v1/chains?network=<network>&limit=<limit>&offset=<offset>
	ListQuestChains(c *gin.Context)

	// ListChainQuests retrieves all quests of a chain
	// GET /api/v1/chains/:address/quests
	ListChainQuests(c *gin.Context)

	// ListChainEdits retrieves the edit history of a chain
	// GET /api/v1/chains/:address/edits
	ListChainEdits(c *gin.Context)

	// GetQuest retrieves a single quest by id
	// GET /api/v1/quests/:id
	GetQuest(c *gin.Context)

	// ListQuestEdits retrieves the edit history of a quest
	// GET /api/v1/quests/:id/edits
	ListQuestEdits(c *gin.Context)

	// GetQuestStatus retrieves a single quest status by id
	// GET /api/v1/statuses/:id
	GetQuestStatus(c *gin.Context)

	// GetUser retrieves a user by address
	// GET /api/v1/users/:address
	GetUser(c *gin.Context)

	// ListUserStatuses retrieves all quest statuses submitted by a user
	// GET /api/v1/users/:address/statuses
	ListUserStatuses(c *gin.Context)

	// GetToken retrieves a completion token by id
	// GET /api/v1/tokens/:id
	GetToken(c *gin.Context)

	// RegisterSource registers a contract address for indexing (requires auth)
	// POST /api/v1/sources
	RegisterSource(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store store.Store
}

// NewHandler creates a REST handler backed by the entity store
func NewHandler(s store.Store) Handler {
	return &handler{store: s}
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetQuestChain retrieves a single quest chain by contract address
func (h *handler) GetQuestChain(c *gin.Context) {
	address := domain.NormalizeAddress(c.Param("address"))

	chain, err := h.store.GetQuestChain(c.Request.Context(), address)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to load quest chain", err.Error())
		return
	}
	if chain == nil {
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Quest chain not found")
		return
	}

	c.JSON(http.StatusOK, chain)
}

// ListQuestChains retrieves quest chains with optional network filter
func (h *handler) ListQuestChains(c *gin.Context) {
	limit, offset, ok := paginationParams(c)
	if !ok {
		return
	}

	chains, err := h.store.ListQuestChains(c.Request.Context(), c.Query("network"), limit, offset)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to list quest chains", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// ListChainQuests retrieves all quests of a chain
func (h *handler) ListChainQuests(c *gin.Context) {
	address := domain.NormalizeAddress(c.Param("address"))

	quests, err := h.store.ListQuestsByChain(c.Request.Context(), address)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to list quests", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

// ListChainEdits retrieves the edit history of a chain
func (h *handler) ListChainEdits(c *gin.Context) {
	address := domain.NormalizeAddress(c.Param("address"))

	edits, err := h.store.ListQuestChainEdits(c.Request.Context(), address)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to list edits", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"edits": edits})
}

// GetQuest retrieves a single quest by id
func (h *handler) GetQuest(c *gin.Context) {
	quest, err := h.store.GetQuest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to load quest", err.Error())
		return
	}
	if quest == nil {
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Quest not found")
		return
	}

	c.JSON(http.StatusOK, quest)
}

// ListQuestEdits retrieves the edit history of a quest
func (h *handler) ListQuestEdits(c *gin.Context) {
	edits, err := h.store.ListQuestEdits(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to list edits", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"edits": edits})
}

// GetQuestStatus retrieves a single quest status by id
func (h *handler) GetQuestStatus(c *gin.Context) {
	status, err := h.store.GetQuestStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to load quest status", err.Error())
		return
	}
	if status == nil {
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Quest status not found")
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetUser retrieves a user by address
func (h *handler) GetUser(c *gin.Context) {
	address := domain.NormalizeAddress(c.Param("address"))

	user, err := h.store.GetUser(c.Request.Context(), address)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to load user", err.Error())
		return
	}
	if user == nil {
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUserStatuses retrieves all quest statuses submitted by a user
func (h *handler) ListUserStatuses(c *gin.Context) {
	address := domain.NormalizeAddress(c.Param("address"))

	statuses, err := h.store.ListQuestStatusesByUser(c.Request.Context(), address)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to list quest statuses", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

// GetToken retrieves a completion token by id
func (h *handler) GetToken(c *gin.Context) {
	token, err := h.store.GetToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to load token", err.Error())
		return
	}
	if token == nil {
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Token not found")
		return
	}

	c.JSON(http.StatusOK, token)
}

// registerSourceRequest is the body of POST /api/v1/sources
type registerSourceRequest struct {
	Address string `json:"address" binding:"required"`
	Network string `json:"network" binding:"required"`
}

// RegisterSource registers a contract address for indexing
func (h *handler) RegisterSource(c *gin.Context) {
	var req registerSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid request body", err.Error())
		return
	}

	if !domain.IsValidNetwork(domain.Network(req.Network)) {
		respondWithError(c, http.StatusBadRequest, errCodeBadRequest, "Unsupported network")
		return
	}

	source := &schema.TrackedSource{
		Address: domain.NormalizeAddress(req.Address),
		Network: req.Network,
		AddedAt: time.Now(),
	}
	if err := h.store.AddTrackedSource(c.Request.Context(), source); err != nil {
		respondWithError(c, http.StatusInternalServerError, errCodeDatabaseError, "Failed to register source", err.Error())
		return
	}

	c.JSON(http.StatusCreated, source)
}

// paginationParams parses limit/offset query parameters, responding with an
// error on malformed values
func paginationParams(c *gin.Context) (limit, offset int, ok bool) {
	limit = 50
	offset = 0

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondWithError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid limit parameter")
			return 0, 0, false
		}
		limit = parsed
	}

	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondWithError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid offset parameter")
			return 0, 0, false
		}
		offset = parsed
	}

	return limit, offset, true
}
