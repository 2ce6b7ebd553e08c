package handler

import (
	"net/http"

	"hrops/internal/middleware"
	"hrops/internal/policy"
	"hrops/internal/repository"
	"hrops/internal/service"
	"hrops/pkg/apperror"
	"hrops/pkg/pagination"
	"hrops/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestHandler struct {
	requestService service.RequestService
	queryService   service.QueryService
}

// NewRequestHandler sets up the routing dependencies for request lifecycle endpoints
func NewRequestHandler(requestService service.RequestService, queryService service.QueryService) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		queryService:   queryService,
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	requests.Use(middleware.RequireAuth())
	{
		requests.POST("", h.SubmitRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/pending", h.ListPending)
		requests.GET("/counts", h.CountPending)
		requests.GET("/mine", h.ListMine)
		requests.GET("/:id", h.GetRequest)
		requests.PUT("/:id", h.DecideRequest)
		requests.PUT("/:id/advance", h.AdvanceRequest)
	}
}

// actorFromContext rebuilds the policy actor from the identity the auth
// middleware stored. Authorization itself happens in the service layer, which
// sees the full request row.
func actorFromContext(c *gin.Context) (policy.Actor, bool) {
	rawID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return policy.Actor{}, false
	}

	idStr, ok := rawID.(string)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
		return policy.Actor{}, false
	}

	userID, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
		return policy.Actor{}, false
	}

	actor := policy.Actor{ID: userID, Role: c.GetString("userRole")}
	if rawPerms, ok := c.Get("userPerms"); ok {
		if perms, ok := rawPerms.([]string); ok {
			actor.Permissions = perms
		}
	}

	return actor, true
}

// writeError maps service errors onto the status codes of the error taxonomy
func writeError(c *gin.Context, err error) {
	status := apperror.Status(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// SubmitRequest handles POST /requests to open a new request
// @Summary      Submit a request
// @Description  Creates a pending request of the given type with a validated payload
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitRequestInput  true  "Request payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var input service.SubmitRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Submit(c.Request.Context(), actor.ID, input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests handles GET /requests with optional type/status/requester filters
// @Summary      List requests
// @Description  Retrieves a paginated, filtered list of requests visible to the caller
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        type        query     string  false  "Request type filter"
// @Param        status      query     string  false  "Status filter"
// @Param        requester   query     string  false  "Requester UUID filter"
// @Param        target      query     string  false  "Target UUID filter"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=object}
// @Failure      400         {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	p := pagination.Parse(c)

	filter := repository.RequestFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	if requester := c.Query("requester"); requester != "" {
		requesterID, err := uuid.Parse(requester)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid requester id"))
			return
		}
		filter.RequesterID = &requesterID
	}
	if target := c.Query("target"); target != "" {
		targetID, err := uuid.Parse(target)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid target id"))
			return
		}
		filter.TargetID = &targetID
	}

	requests, total, err := h.queryService.ListRequests(c.Request.Context(), actor, filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// ListPending handles GET /requests/pending, the reviewer inbox
// @Summary      List pending requests
// @Description  Retrieves pending requests the caller may review, most urgent first, oldest first within an urgency
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        type   query     string  false  "Request type filter"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      400    {object}  response.Response
// @Router       /api/requests/pending [get]
func (h *RequestHandler) ListPending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	requests, err := h.queryService.ListPending(c.Request.Context(), actor, c.Query("type"))
	if err != nil {
		writeError(c, err)
		return
	}

	// Visibility filtering happens per actor, so pagination is applied to the
	// already-filtered, already-ordered list.
	p := pagination.Parse(c)
	total := len(requests)
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests[start:end],
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// CountPending handles GET /requests/counts for the dashboard badges
// @Summary      Count pending requests per type
// @Description  Returns the number of pending requests the caller may review, keyed by request type
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/requests/counts [get]
func (h *RequestHandler) CountPending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	counts, err := h.queryService.CountPendingByType(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, counts))
}

// ListMine handles GET /requests/mine, the caller's submission history
// @Summary      List own requests
// @Description  Retrieves every request submitted by the caller, newest first
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.RequestResponse}
// @Router       /api/requests/mine [get]
func (h *RequestHandler) ListMine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	requests, err := h.queryService.ListForRequester(c.Request.Context(), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// GetRequest handles GET /requests/:id
// @Summary      Get request by ID
// @Description  Fetch a single request's detail, subject to visibility rules
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	result, err := h.requestService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DecideRequest handles PUT /requests/:id to approve or reject
// @Summary      Decide a request
// @Description  Approves or rejects a pending request. Each request is decided at most once.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Request ID"
// @Param        payload  body      service.DecideRequestInput  true  "Decision payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id} [put]
func (h *RequestHandler) DecideRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var input service.DecideRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Decide(c.Request.Context(), c.Param("id"), actor, input.Status, input.ResponseMessage)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AdvanceRequest handles PUT /requests/:id/advance for post-approval states
// @Summary      Advance a request
// @Description  Moves an approved logistics or document request one step along its fulfilment path
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Request ID"
// @Param        payload  body      service.AdvanceRequestInput  true  "Advance payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/requests/{id}/advance [put]
func (h *RequestHandler) AdvanceRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var input service.AdvanceRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Advance(c.Request.Context(), c.Param("id"), actor, input.NextState)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
