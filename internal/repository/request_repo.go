package repository

import (
	"context"
	"time"

	"hrops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows List results. Zero values mean "no filter".
type RequestFilter struct {
	RequesterID *uuid.UUID
	TargetID    *uuid.UUID
	Type        string
	Status      string
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter RequestFilter, page, limit int) ([]model.Request, int64, error)
	ListPending(ctx context.Context, requestType string) ([]model.Request, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]model.Request, error)
	UpdateDecision(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID, decidedAt time.Time, responseMessage string) (bool, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).Preload("Requester").Preload("Reviewer").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter, page, limit int) ([]model.Request, int64, error) {
	var requests []model.Request
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Request{})
	query = applyFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := applyFilter(db.Preload("Requester").Preload("Reviewer"), filter)
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ListPending returns every pending request ordered urgency-first (urgent > high >
// medium > low), oldest-first within the same urgency. The ordering is part of the
// query contract; callers still filter visibility in-process.
func (r *requestRepository) ListPending(ctx context.Context, requestType string) ([]model.Request, error) {
	var requests []model.Request
	query := GetDB(ctx, r.db).Preload("Requester").Where("status = ?", model.RequestStatusPending)
	if requestType != "" {
		query = query.Where("type = ?", requestType)
	}
	err := query.Order(`CASE urgency
		WHEN 'urgent' THEN 4
		WHEN 'high' THEN 3
		WHEN 'medium' THEN 2
		ELSE 1 END DESC`).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]model.Request, error) {
	var requests []model.Request
	err := GetDB(ctx, r.db).Preload("Reviewer").
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateDecision performs the atomic pending→terminal transition. The conditional
// WHERE on status makes concurrent decides race safely: only one UPDATE hits a row,
// the rest return false and the caller reports a conflict.
func (r *requestRepository) UpdateDecision(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID, decidedAt time.Time, responseMessage string) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":           status,
			"reviewer_id":      reviewerID,
			"decided_at":       decidedAt,
			"response_message": responseMessage,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateProgress moves an approved request one step along the post-approval chain,
// again guarded by the expected predecessor status.
func (r *requestRepository) UpdateProgress(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func applyFilter(query *gorm.DB, filter RequestFilter) *gorm.DB {
	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.TargetID != nil {
		query = query.Where("target_id = ?", *filter.TargetID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}
