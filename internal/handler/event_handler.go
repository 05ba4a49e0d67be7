package handler

import (
	"context"
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/bulk"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	eventService service.EventService
	authMw       *middleware.AuthMiddleware
}

func NewEventHandler(eventService service.EventService, authMw *middleware.AuthMiddleware) *EventHandler {
	return &EventHandler{eventService: eventService, authMw: authMw}
}

// RegisterRoutes binds the event endpoints, each gated by its own permission
func (h *EventHandler) RegisterRoutes(router *gin.RouterGroup) {
	events := router.Group("/api/events")
	{
		events.GET("", h.authMw.RequirePermission(model.PermEventsRead), h.ListEvents)
		events.GET("/stats", h.authMw.RequirePermission(model.PermStatsRead), h.Stats)
		events.GET("/:id", h.authMw.RequirePermission(model.PermEventsRead), h.GetEvent)
		events.POST("", h.authMw.RequirePermission(model.PermEventsWrite), h.CreateEvent)

		events.POST("/:id/complete", h.authMw.RequirePermission(model.PermEventsComplete), h.singleOp(h.eventService.CompleteEvent))
		events.POST("/:id/postpone", h.authMw.RequirePermission(model.PermEventsPostpone), h.singleOp(h.eventService.PostponeEvent))
		events.POST("/:id/follow-up", h.authMw.RequirePermission(model.PermEventsFollowUp), h.singleOp(h.eventService.FollowUpEvent))
		events.POST("/:id/reject", h.authMw.RequirePermission(model.PermEventsReject), h.singleOp(h.eventService.RejectEvent))

		events.POST("/bulk/complete", h.authMw.RequirePermission(model.PermEventsComplete), h.bulkOp(h.eventService.BulkComplete))
		events.POST("/bulk/postpone", h.authMw.RequirePermission(model.PermEventsPostpone), h.bulkOp(h.eventService.BulkPostpone))
		events.POST("/bulk/follow-up", h.authMw.RequirePermission(model.PermEventsFollowUp), h.bulkOp(h.eventService.BulkFollowUp))
		events.POST("/bulk/reject", h.authMw.RequirePermission(model.PermEventsReject), h.bulkOp(h.eventService.BulkReject))
	}
}

// CreateEvent handles POST /api/events
// @Summary      Create a new event
// @Description  Creates a pending event owned by the caller
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateEventRequest  true  "Create Event Payload"
// @Success      201      {object}  response.Response{data=service.EventResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), middleware.MustUserID(c), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, event))
}

// ListEvents handles GET /api/events with pagination and optional status filter
// @Summary      List events
// @Description  Retrieves a paginated list of events
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "Filter by status (PENDING, COMPLETED, REJECTED)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	params := pagination.Parse(c)
	status := c.Query("status")

	events, total, err := h.eventService.ListEvents(c.Request.Context(), params.Page, params.Limit, status)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	}))
}

// GetEvent handles GET /api/events/:id
// @Summary      Get event by ID
// @Description  Fetch a single event's detail
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Event ID"
// @Success      200  {object}  response.Response{data=service.EventResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	event, err := h.eventService.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, event))
}

// Stats handles GET /api/events/stats
// @Summary      Event statistics
// @Description  Aggregated counts per status plus total budget
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.EventStatsResponse}
// @Router       /api/events/stats [get]
func (h *EventHandler) Stats(c *gin.Context) {
	stats, err := h.eventService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// singleOp adapts a per-item event operation into a gin handler
func (h *EventHandler) singleOp(op func(ctx context.Context, actorID, id uint) (*service.EventResponse, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		event, err := op(c.Request.Context(), middleware.MustUserID(c), id)
		if err != nil {
			c.JSON(response.FromError(err))
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, event))
	}
}

// bulkOp adapts a bulk event operation into a gin handler. Each bulk endpoint
// takes {event_ids: [...]} and returns separate success/failure lists; a
// per-item failure never fails the request as a whole.
func (h *EventHandler) bulkOp(op func(ctx context.Context, actorID uint, ids []uint) (bulk.Result[service.EventResponse], error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.BulkEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}

		result, err := op(c.Request.Context(), middleware.MustUserID(c), req.EventIDs)
		if err != nil {
			c.JSON(response.FromError(err))
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
	}
}

// parseID reads the :id path parameter, writing the 400 response on failure
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid id in path"))
		return 0, false
	}
	return uint(id), true
}
