package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hrops/internal/model"
	"hrops/internal/repository"
	"hrops/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	Title      string `json:"title" binding:"required"`
	Department string `json:"department" binding:"required"`
	AssigneeID string `json:"assignee_id"`
	DueDate    string `json:"due_date"` // YYYY-MM-DD, optional
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=OPEN IN_PROGRESS DONE"`
}

type TaskResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Department   string  `json:"department"`
	AssigneeID   *string `json:"assignee_id"`
	AssigneeName string  `json:"assignee_name,omitempty"`
	Status       string  `json:"status"`
	DueDate      *string `json:"due_date"`
	CreatedAt    string  `json:"created_at"`
}

type TaskService interface {
	CreateTask(ctx context.Context, actorID uuid.UUID, req CreateTaskRequest) (*TaskResponse, error)
	GetTask(ctx context.Context, id string) (*TaskResponse, error)
	ListTasks(ctx context.Context, department string, page, limit int) ([]TaskResponse, int64, error)
	UpdateTaskStatus(ctx context.Context, id string, req UpdateTaskStatusRequest) (*TaskResponse, error)
}

type taskService struct {
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) TaskService {
	return &taskService{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

func (s *taskService) CreateTask(ctx context.Context, actorID uuid.UUID, req CreateTaskRequest) (*TaskResponse, error) {
	task := model.Task{
		Title:      req.Title,
		Department: req.Department,
		Status:     model.TaskStatusOpen,
	}

	if req.AssigneeID != "" {
		assigneeID, err := uuid.Parse(req.AssigneeID)
		if err != nil {
			return nil, apperror.Validation("invalid assignee id")
		}
		if _, err := s.userRepo.GetByID(ctx, assigneeID.String()); err != nil {
			return nil, apperror.NotFound("assignee not found")
		}
		task.AssigneeID = &assigneeID
	}

	if req.DueDate != "" {
		due, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return nil, apperror.Validation("due_date must be a YYYY-MM-DD date")
		}
		task.DueDate = &due
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.taskRepo.Create(txCtx, &task); createErr != nil {
			return fmt.Errorf("failed to create task: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"department": req.Department})
		audit := model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateTask,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTask(ctx, task.ID.String())
}

func (s *taskService) GetTask(ctx context.Context, id string) (*TaskResponse, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid task id")
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("task not found")
		}
		return nil, err
	}

	resp := toTaskResponse(*task)
	return &resp, nil
}

func (s *taskService) ListTasks(ctx context.Context, department string, page, limit int) ([]TaskResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	tasks, total, err := s.taskRepo.List(ctx, department, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, toTaskResponse(t))
	}

	return res, total, nil
}

func (s *taskService) UpdateTaskStatus(ctx context.Context, id string, req UpdateTaskStatusRequest) (*TaskResponse, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid task id")
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("task not found")
		}
		return nil, err
	}

	task.Status = req.Status
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	resp := toTaskResponse(*task)
	return &resp, nil
}

func toTaskResponse(t model.Task) TaskResponse {
	resp := TaskResponse{
		ID:         t.ID.String(),
		Title:      t.Title,
		Department: t.Department,
		Status:     t.Status,
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
	}

	if t.AssigneeID != nil {
		s := t.AssigneeID.String()
		resp.AssigneeID = &s
	}
	if t.Assignee != nil {
		resp.AssigneeName = t.Assignee.Username
	}
	if t.DueDate != nil {
		s := t.DueDate.Format("2006-01-02")
		resp.DueDate = &s
	}

	return resp
}
