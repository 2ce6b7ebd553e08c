package repository

import (
	"context"
	"fmt"
	"time"

	"hrops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	List(ctx context.Context, kind string, page, limit int) ([]model.Document, int64, error)
	AssignRegistrationNo(ctx context.Context, id uuid.UUID) (string, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

func (r *documentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := GetDB(ctx, r.db).Preload("Owner").First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, kind string, page, limit int) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Document{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Owner")
	if kind != "" {
		fetchQuery = fetchQuery.Where("kind = ?", kind)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// AssignRegistrationNo stamps a sequential registration number of the form
// REG-YYYYMMDD-NNNNN on the document. An advisory lock on the day prefix prevents
// concurrent completions from producing duplicates.
func (r *documentRepository) AssignRegistrationNo(ctx context.Context, id uuid.UUID) (string, error) {
	db := GetDB(ctx, r.db)

	today := time.Now().Format("20060102")
	prefix := "REG-" + today + "-"

	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.Document{}).
		Where("registration_no LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	regNo := fmt.Sprintf("%s%05d", prefix, count+1)
	if err := db.Model(&model.Document{}).Where("id = ?", id).
		Update("registration_no", regNo).Error; err != nil {
		return "", err
	}

	return regNo, nil
}
