package handler

import (
	"net/http"

	"hrops/internal/middleware"
	"hrops/internal/service"
	"hrops/pkg/pagination"
	"hrops/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService service.TaskService
}

func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/api/tasks")
	{
		tasks.GET("", middleware.RequirePermission("tasks.read"), h.ListTasks)
		tasks.GET("/:id", middleware.RequirePermission("tasks.read"), h.GetTask)
		tasks.POST("", middleware.RequirePermission("tasks.write"), h.CreateTask)
		tasks.PUT("/:id/status", middleware.RequirePermission("tasks.write"), h.UpdateTaskStatus)
	}
}

// CreateTask handles POST /tasks
// @Summary      Create a task
// @Description  Creates a department task that requests can later point at
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateTaskRequest  true  "Create Task Payload"
// @Success      201      {object}  response.Response{data=service.TaskResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), actor.ID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, task))
}

// GetTask handles GET /tasks/:id
// @Summary      Get task by ID
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=service.TaskResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// ListTasks handles GET /tasks with optional department filter
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        department  query     string  false  "Department filter"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=object}
// @Router       /api/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	p := pagination.Parse(c)

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), c.Query("department"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}

// UpdateTaskStatus handles PUT /tasks/:id/status
// @Summary      Update task status
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Task ID"
// @Param        payload  body      service.UpdateTaskStatusRequest  true  "Status Payload"
// @Success      200      {object}  response.Response{data=service.TaskResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tasks/{id}/status [put]
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	var req service.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	task, err := h.taskService.UpdateTaskStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}
