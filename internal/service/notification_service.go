package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"hrops/internal/model"
	"hrops/internal/repository"
	ws "hrops/internal/websocket"
	"hrops/pkg/apperror"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id"`
	EventKind string `json:"event_kind"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// NotificationService is the dispatcher boundary of the lifecycle engine. Notify is
// fire-and-forget: it logs failures instead of returning them, so a dead hub or a
// failed insert can never roll back a decision.
type NotificationService interface {
	Notify(ctx context.Context, recipientID, requestID uuid.UUID, eventKind, message string)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, id string, userID uuid.UUID) error
}

type notificationService struct {
	repo repository.NotificationRepository
	hub  *ws.Hub
}

func NewNotificationService(repo repository.NotificationRepository, hub *ws.Hub) NotificationService {
	return &notificationService{repo: repo, hub: hub}
}

func (s *notificationService) Notify(ctx context.Context, recipientID, requestID uuid.UUID, eventKind, message string) {
	n := &model.Notification{
		RecipientID: recipientID,
		RequestID:   requestID,
		EventKind:   eventKind,
		Message:     message,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		log.Println("notification write failed (ignored):", err)
		return
	}

	if s.hub == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"kind":       "notification",
		"event":      eventKind,
		"request_id": requestID.String(),
		"message":    message,
		"created_at": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Println("notification encode failed (ignored):", err)
		return
	}

	s.hub.SendToUser(recipientID.String(), payload)
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	notifications, total, err := s.repo.ListByRecipient(ctx, userID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		res = append(res, NotificationResponse{
			ID:        n.ID.String(),
			RequestID: n.RequestID.String(),
			EventKind: n.EventKind,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}

	return res, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string, userID uuid.UUID) error {
	notifID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid notification id")
	}

	updated, err := s.repo.MarkRead(ctx, notifID, userID)
	if err != nil {
		return err
	}
	if !updated {
		return apperror.NotFound("notification not found")
	}
	return nil
}
