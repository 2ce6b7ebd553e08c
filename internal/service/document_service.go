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

type CreateDocumentRequest struct {
	Title string `json:"title" binding:"required"`
	Kind  string `json:"kind" binding:"required,oneof=CONTRACT CERTIFICATE REGISTRATION OTHER"`
}

type DocumentResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Kind           string `json:"kind"`
	OwnerID        string `json:"owner_id"`
	OwnerName      string `json:"owner_name,omitempty"`
	RegistrationNo string `json:"registration_no,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type DocumentService interface {
	CreateDocument(ctx context.Context, ownerID uuid.UUID, req CreateDocumentRequest) (*DocumentResponse, error)
	GetDocument(ctx context.Context, id string) (*DocumentResponse, error)
	ListDocuments(ctx context.Context, kind string, page, limit int) ([]DocumentResponse, int64, error)
}

type documentService struct {
	docRepo   repository.DocumentRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewDocumentService(
	docRepo repository.DocumentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) DocumentService {
	return &documentService{
		docRepo:   docRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

func (s *documentService) CreateDocument(ctx context.Context, ownerID uuid.UUID, req CreateDocumentRequest) (*DocumentResponse, error) {
	doc := model.Document{
		Title:   req.Title,
		Kind:    req.Kind,
		OwnerID: ownerID,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.docRepo.Create(txCtx, &doc); createErr != nil {
			return fmt.Errorf("failed to create document: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"kind": req.Kind})
		audit := model.AuditLog{
			UserID:     &ownerID,
			Action:     model.ActionCreateDocument,
			EntityID:   doc.ID.String(),
			EntityName: doc.Title,
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

	return s.GetDocument(ctx, doc.ID.String())
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*DocumentResponse, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid document id")
	}

	doc, err := s.docRepo.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("document not found")
		}
		return nil, err
	}

	resp := toDocumentResponse(*doc)
	return &resp, nil
}

func (s *documentService) ListDocuments(ctx context.Context, kind string, page, limit int) ([]DocumentResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	docs, total, err := s.docRepo.List(ctx, kind, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		res = append(res, toDocumentResponse(d))
	}

	return res, total, nil
}

func toDocumentResponse(d model.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:             d.ID.String(),
		Title:          d.Title,
		Kind:           d.Kind,
		OwnerID:        d.OwnerID.String(),
		RegistrationNo: d.RegistrationNo,
		CreatedAt:      d.CreatedAt.Format(time.RFC3339),
	}

	if d.Owner != nil {
		resp.OwnerName = d.Owner.Username
	}

	return resp
}
