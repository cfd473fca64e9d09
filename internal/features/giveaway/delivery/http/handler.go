package http

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"twitch-giveaway-backend/internal/common/errors"
	"twitch-giveaway-backend/internal/common/middleware"
	"twitch-giveaway-backend/internal/features/giveaway/mapper"
	"twitch-giveaway-backend/internal/features/giveaway/models/dto"
	"twitch-giveaway-backend/internal/features/giveaway/service"
)

type GiveawayHandler struct {
	service service.GiveawayService
	logger  zerolog.Logger
	wrap    func(gin.HandlerFunc) gin.HandlerFunc
}

func NewGiveawayHandler(svc service.GiveawayService, logger zerolog.Logger) *GiveawayHandler {
	return &GiveawayHandler{
		service: svc,
		logger:  logger,
		wrap:    middleware.HandleErrorWrapper(logger),
	}
}

// RegisterRoutes mounts the API under router. ingest runs in front of the
// chat ingestion endpoints, typically a rate limiter.
func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup, ingest ...gin.HandlerFunc) {
	router.GET("/health", h.health)

	giveaway := router.Group("/giveaway")
	{
		giveaway.POST("", h.wrap(h.create))
		giveaway.GET("/active", h.wrap(h.getActive))
		giveaway.GET("/stats/:channel", h.wrap(h.getStats))
		giveaway.GET("/:id", h.wrap(h.getByID))
		giveaway.POST("/:id/stop", h.wrap(h.stop))
		giveaway.GET("/:id/participants", h.wrap(h.getParticipants))
		giveaway.DELETE("/:id/participants", h.wrap(h.clearParticipants))
		giveaway.POST("/:id/participant", h.wrap(h.addParticipant))
		giveaway.POST("/:id/winner", h.wrap(h.selectWinner))
		giveaway.GET("/:id/chat", h.wrap(h.getChat))
	}

	chat := router.Group("/chat", ingest...)
	chat.POST("/message", h.wrap(h.ingestMessage))

	simulate := router.Group("/simulate", ingest...)
	simulate.POST("/chat", h.wrap(h.simulateChat))

	router.DELETE("/clear-all", h.wrap(h.clearAll))
}

// RegisterOpsRoutes mounts the readiness probe.
func (h *GiveawayHandler) RegisterOpsRoutes(router gin.IRoutes) {
	router.GET("/ready", h.wrap(h.ready))
}

// @Summary Health check
// @Tags ops
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (h *GiveawayHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "healthy", Timestamp: time.Now().UTC()})
}

// ready sits outside the /api base path and is left out of the API docs.
func (h *GiveawayHandler) ready(c *gin.Context) {
	if err := h.service.Ping(c.Request.Context()); err != nil {
		_ = c.Error(toAppError(err, "", ""))
		return
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ready", Timestamp: time.Now().UTC()})
}

// @Summary Start a giveaway
// @Description Creates an active giveaway for the channel derived from stream_url
// @Tags giveaways
// @Accept json
// @Produce json
// @Param input body dto.GiveawayCreateRequest true "Giveaway data"
// @Success 200 {object} models.Giveaway
// @Failure 400 {object} middleware.ErrorResponse
// @Router /giveaway [post]
func (h *GiveawayHandler) create(c *gin.Context) {
	var input dto.GiveawayCreateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeValidation, "Invalid request body"))
		return
	}

	g, err := h.service.Create(c.Request.Context(), service.CreateInput{
		StreamURL:   input.StreamURL,
		ChannelName: input.ChannelName,
		Keyword:     input.Keyword,
	})
	if err != nil {
		_ = c.Error(toAppError(err, "", input.ChannelName))
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Newest active giveaway
// @Description Returns null when no giveaway is active
// @Tags giveaways
// @Produce json
// @Param channel query string false "Channel filter"
// @Success 200 {object} models.Giveaway
// @Router /giveaway/active [get]
func (h *GiveawayHandler) getActive(c *gin.Context) {
	channel := c.Query("channel")
	g, err := h.service.GetActive(c.Request.Context(), channel)
	if err != nil {
		_ = c.Error(toAppError(err, "", channel))
		return
	}
	if g == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Get a giveaway
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.Giveaway
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaway/{id} [get]
func (h *GiveawayHandler) getByID(c *gin.Context) {
	id := c.Param("id")
	g, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(toAppError(err, id, ""))
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Stop a giveaway
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaway/{id}/stop [post]
func (h *GiveawayHandler) stop(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Stop(c.Request.Context(), id); err != nil {
		_ = c.Error(toAppError(err, id, ""))
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Giveaway stopped"})
}

// @Summary List participants in join order
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {array} models.Participant
// @Router /giveaway/{id}/participants [get]
func (h *GiveawayHandler) getParticipants(c *gin.Context) {
	id := c.Param("id")
	ps, err := h.service.Participants(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(toAppError(err, id, ""))
		return
	}
	c.JSON(http.StatusOK, ps)
}

// @Summary Remove all participants
// @Description Resets the counter and winner; the active flag is kept
// @Tags giveaways
// @Param id path string true "Giveaway ID"
// @Success 200 {object} dto.ClearParticipantsResponse
// @Router /giveaway/{id}/participants [delete]
func (h *GiveawayHandler) clearParticipants(c *gin.Context) {
	id := c.Param("id")
	deleted, err := h.service.ClearParticipants(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(toAppError(err, id, ""))
		return
	}
	c.JSON(http.StatusOK, dto.ClearParticipantsResponse{Message: "Participants cleared", Deleted: deleted})
}

// @Summary Register a participant manually
// @Tags giveaways
// @Param id path string true "Giveaway ID"
// @Param username query string true "Username"
// @Success 200 {object} dto.ParticipantResponse
// @Router /giveaway/{id}/participant [post]
func (h *GiveawayHandler) addParticipant(c *gin.Context) {
	id := c.Param("id")
	username := c.Query("username")
	if username == "" {
		_ = c.Error(errors.NewValidationError("username", "is required"))
		return
	}

	registered, err := h.service.Register(c.Request.Context(), id, username)
	if err != nil {
		_ = c.Error(toAppError(err, id, ""))
		return
	}

	c.JSON(http.StatusOK, dto.ParticipantResponse{Registered: registered, Message: mapper.ParticipantMessage(registered)})
}

// @Summary Draw a winner
// @Description Picks one participant uniformly at random and closes the giveaway
// @Tags giveaways
// @Param id path string true "Giveaway ID"
// @Success 200 {object} dto.WinnerResponse
// @Failure 400 {object} middleware.ErrorResponse "No participants"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaway/{id}/winner [post]
func (h *GiveawayHandler) selectWinner(c *gin.Context) {
	id := c.Param("id")
	winner, err := h.service.SelectWinner(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(toAppError(err, id, ""))
		return
	}
	c.JSON(http.StatusOK, dto.WinnerResponse{Winner: winner})
}

// @Summary Latest chat messages, oldest first
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway ID"
// @Param limit query int false "Maximum messages (default 50, max 500)"
// @Success 200 {array} models.ChatMessage
// @Router /giveaway/{id}/chat [get]
func (h *GiveawayHandler) getChat(c *gin.Context) {
	id := c.Param("id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			_ = c.Error(errors.NewValidationError("limit", "must be a positive integer"))
			return
		}
		limit = n
	}

	msgs, err := h.service.Messages(c.Request.Context(), id, limit)
	if err != nil {
		_ = c.Error(toAppError(err, id, ""))
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// @Summary Active giveaway summary for a channel
// @Tags giveaways
// @Produce json
// @Param channel path string true "Channel"
// @Success 200 {object} models.GiveawayStats
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaway/stats/{channel} [get]
func (h *GiveawayHandler) getStats(c *gin.Context) {
	channel := c.Param("channel")
	stats, err := h.service.Stats(c.Request.Context(), channel)
	if err != nil {
		_ = c.Error(toAppError(err, "", channel))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Ingest a chat message
// @Description Records the message against the channel's active giveaway and registers the sender on a keyword match
// @Tags chat
// @Accept json
// @Produce json
// @Param input body dto.ChatMessageRequest true "Chat event"
// @Success 200 {object} dto.ChatIngestResponse
// @Router /chat/message [post]
func (h *GiveawayHandler) ingestMessage(c *gin.Context) {
	var input dto.ChatMessageRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeValidation, "Invalid request body"))
		return
	}

	res, err := h.service.Ingest(c.Request.Context(), service.SourceHTTP, input.ToEvent())
	if stderrors.Is(err, service.ErrNoActiveGiveaway) {
		c.JSON(http.StatusOK, mapper.NoActiveGiveawayResponse())
		return
	}
	if err != nil {
		_ = c.Error(toAppError(err, "", input.Channel))
		return
	}

	zerolog.Ctx(c.Request.Context()).Debug().
		Str("channel", input.Channel).
		Str("username", input.Username).
		Str("outcome", string(res.Outcome)).
		Msg("Chat message ingested")
	c.JSON(http.StatusOK, mapper.ToChatIngestResponse(res))
}

// @Summary Simulate a chat line
// @Description Demo aid: a random viewer posts either the keyword or small talk
// @Tags chat
// @Param giveaway_id query string false "Giveaway ID, defaults to the newest active one"
// @Success 200 {object} models.ChatMessage
// @Router /simulate/chat [post]
func (h *GiveawayHandler) simulateChat(c *gin.Context) {
	id := c.Query("giveaway_id")
	res, err := h.service.Simulate(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(toAppError(err, id, ""))
		return
	}
	c.JSON(http.StatusOK, res.Message)
}

// @Summary Delete every giveaway, participant and message
// @Tags ops
// @Produce json
// @Success 200 {object} dto.MessageResponse
// @Router /clear-all [delete]
func (h *GiveawayHandler) clearAll(c *gin.Context) {
	if err := h.service.ClearAll(c.Request.Context()); err != nil {
		_ = c.Error(toAppError(err, "", ""))
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "All data cleared"})
}
