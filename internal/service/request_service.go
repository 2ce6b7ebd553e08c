package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hrops/internal/model"
	"hrops/internal/policy"
	"hrops/internal/repository"
	"hrops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type SubmitRequestInput struct {
	Type        string          `json:"type" binding:"required"`
	TargetID    string          `json:"target_id"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Urgency     string          `json:"urgency"`
	Payload     json.RawMessage `json:"payload"`
}

type DecideRequestInput struct {
	Status          string `json:"status" binding:"required,oneof=approved rejected"`
	ResponseMessage string `json:"response_message"`
}

type AdvanceRequestInput struct {
	NextState string `json:"next_state" binding:"required"`
}

type RequestResponse struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	RequesterID     string  `json:"requester_id"`
	RequesterName   string  `json:"requester_name,omitempty"`
	TargetID        *string `json:"target_id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Urgency         string  `json:"urgency"`
	Payload         string  `json:"payload"`
	Status          string  `json:"status"`
	ResponseMessage string  `json:"response_message"`
	ReviewerID      *string `json:"reviewer_id"`
	ReviewerName    string  `json:"reviewer_name,omitempty"`
	CreatedAt       string  `json:"created_at"`
	DecidedAt       *string `json:"decided_at"`
}

// --- Interface ---

// RequestService is the lifecycle engine: the sole mutator of request state. Every
// transition runs as a conditional update keyed on the expected current status, so
// concurrent callers race safely: at most one wins, the rest see a conflict.
type RequestService interface {
	Submit(ctx context.Context, requesterID uuid.UUID, input SubmitRequestInput) (RequestResponse, error)
	Get(ctx context.Context, actor policy.Actor, id string) (RequestResponse, error)
	Decide(ctx context.Context, id string, actor policy.Actor, decision, responseMessage string) (RequestResponse, error)
	Advance(ctx context.Context, id string, actor policy.Actor, nextState string) (RequestResponse, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	taskRepo    repository.TaskRepository
	docRepo     repository.DocumentRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    NotificationService
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	taskRepo repository.TaskRepository,
	docRepo repository.DocumentRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier NotificationService,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		taskRepo:    taskRepo,
		docRepo:     docRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifier,
	}
}

// --- Implementation ---

func (s *requestService) Submit(ctx context.Context, requesterID uuid.UUID, input SubmitRequestInput) (RequestResponse, error) {
	if !model.ValidRequestType(input.Type) {
		return RequestResponse{}, apperror.Validation("unknown request type '%s'", input.Type)
	}

	urgency := input.Urgency
	if urgency == "" {
		urgency = model.UrgencyMedium
	}
	if !model.ValidUrgency(urgency) {
		return RequestResponse{}, apperror.Validation("unknown urgency '%s'", urgency)
	}

	if len([]rune(input.Description)) < 10 {
		return RequestResponse{}, apperror.Validation("description must be at least 10 characters")
	}

	payload := input.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if err := validatePayload(input.Type, payload); err != nil {
		return RequestResponse{}, err
	}

	targetID, err := s.resolveTarget(ctx, input.Type, input.TargetID)
	if err != nil {
		return RequestResponse{}, err
	}

	request := model.Request{
		Type:        input.Type,
		RequesterID: requesterID,
		TargetID:    targetID,
		Title:       input.Title,
		Description: input.Description,
		Urgency:     urgency,
		Payload:     string(payload),
		Status:      model.RequestStatusPending,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requestRepo.Create(txCtx, &request); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"type":    input.Type,
			"urgency": urgency,
		})
		audit := model.AuditLog{
			UserID:     &requesterID,
			Action:     model.ActionSubmitRequest,
			EntityID:   request.ID.String(),
			EntityName: request.Title,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	// Leave and logistics submissions surface in reviewer inboxes immediately;
	// the rest are pull-only until decided.
	if input.Type == model.RequestTypeLeave || input.Type == model.RequestTypeLogisticsItem {
		s.notifyReviewers(ctx, &request)
	}

	loaded, loadErr := s.requestRepo.FindByIDWithRelations(ctx, request.ID)
	if loadErr != nil {
		return RequestResponse{}, fmt.Errorf("failed to reload request: %w", loadErr)
	}

	return toRequestResponse(*loaded), nil
}

func (s *requestService) Get(ctx context.Context, actor policy.Actor, id string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}

	request, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, apperror.NotFound("request not found")
		}
		return RequestResponse{}, err
	}

	if !policy.CanView(actor, request) {
		return RequestResponse{}, apperror.Forbidden("not allowed to view this request")
	}

	return toRequestResponse(*request), nil
}

func (s *requestService) Decide(ctx context.Context, id string, actor policy.Actor, decision, responseMessage string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}

	if decision != model.RequestStatusApproved && decision != model.RequestStatusRejected {
		return RequestResponse{}, apperror.Validation("decision must be approved or rejected")
	}

	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, apperror.NotFound("request not found")
		}
		return RequestResponse{}, err
	}

	if request.Status != model.RequestStatusPending {
		return RequestResponse{}, apperror.Conflict("request is already %s", request.Status)
	}

	// Self-approval is invalid input regardless of role; checked before the
	// policy so it cannot masquerade as an authorization failure.
	if actor.ID == request.RequesterID {
		return RequestResponse{}, apperror.Validation("requester cannot decide their own request")
	}

	if !policy.CanDecide(actor, request) {
		return RequestResponse{}, apperror.Forbidden("not allowed to decide this request")
	}

	if decision == model.RequestStatusRejected && responseMessage == "" {
		return RequestResponse{}, apperror.Validation("a response message is required when rejecting")
	}

	now := time.Now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// The conditional update is the at-most-once guarantee: losing the race
		// to another reviewer surfaces as zero affected rows, never as a second
		// silent decision.
		updated, updateErr := s.requestRepo.UpdateDecision(txCtx, requestID, decision, actor.ID, now, responseMessage)
		if updateErr != nil {
			return fmt.Errorf("failed to update request: %w", updateErr)
		}
		if !updated {
			return apperror.Conflict("request was already decided")
		}

		action := model.ActionApproveRequest
		if decision == model.RequestStatusRejected {
			action = model.ActionRejectRequest
		}
		details, _ := json.Marshal(map[string]interface{}{
			"type":     request.Type,
			"decision": decision,
		})
		audit := model.AuditLog{
			UserID:     &actor.ID,
			Action:     action,
			EntityID:   requestID.String(),
			EntityName: request.Title,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	// Notify only after the decision is durably committed; a dispatch failure
	// never unwinds it.
	event := model.EventRequestApproved
	message := fmt.Sprintf("Your request '%s' was approved", request.Title)
	if decision == model.RequestStatusRejected {
		event = model.EventRequestRejected
		message = fmt.Sprintf("Your request '%s' was rejected: %s", request.Title, responseMessage)
	}
	s.notifier.Notify(ctx, request.RequesterID, requestID, event, message)

	loaded, loadErr := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if loadErr != nil {
		return RequestResponse{}, fmt.Errorf("failed to reload request: %w", loadErr)
	}

	return toRequestResponse(*loaded), nil
}

func (s *requestService) Advance(ctx context.Context, id string, actor policy.Actor, nextState string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}

	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, apperror.NotFound("request not found")
		}
		return RequestResponse{}, err
	}

	if !model.Advanceable(request.Type) {
		return RequestResponse{}, apperror.Unprocessable("request type '%s' has no post-approval states", request.Type)
	}

	prevState := model.NextProgressState(nextState)
	if prevState == "" {
		return RequestResponse{}, apperror.Unprocessable("'%s' is not a post-approval state", nextState)
	}

	if !policy.CanAdvance(actor, request, nextState) {
		return RequestResponse{}, apperror.Forbidden("not allowed to advance this request")
	}

	// Skipping or reversing a step is a transition-order violation; losing a race
	// from the correct predecessor is a conflict. The snapshot check separates the
	// two, the conditional update below settles races.
	if request.Status != prevState {
		return RequestResponse{}, apperror.Unprocessable("cannot move from '%s' to '%s'", request.Status, nextState)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		updated, updateErr := s.requestRepo.UpdateProgress(txCtx, requestID, prevState, nextState)
		if updateErr != nil {
			return fmt.Errorf("failed to advance request: %w", updateErr)
		}
		if !updated {
			return apperror.Conflict("request state changed concurrently")
		}

		// Completed registrations stamp a registry number on the document
		if nextState == model.RequestStatusCompleted &&
			request.Type == model.RequestTypeDocumentApproval && request.TargetID != nil {
			regNo, regErr := s.docRepo.AssignRegistrationNo(txCtx, *request.TargetID)
			if regErr != nil {
				return fmt.Errorf("failed to assign registration number: %w", regErr)
			}

			regAudit := model.AuditLog{
				UserID:     &actor.ID,
				Action:     model.ActionRegisterDoc,
				EntityID:   request.TargetID.String(),
				EntityName: regNo,
			}
			if auditErr := s.auditRepo.Log(txCtx, &regAudit); auditErr != nil {
				return fmt.Errorf("failed to write registration audit log: %w", auditErr)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"type": request.Type,
			"from": prevState,
			"to":   nextState,
		})
		audit := model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionAdvanceRequest,
			EntityID:   requestID.String(),
			EntityName: request.Title,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	message := fmt.Sprintf("Your request '%s' is now %s", request.Title, nextState)
	s.notifier.Notify(ctx, request.RequesterID, requestID, model.EventRequestAdvanced, message)

	loaded, loadErr := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if loadErr != nil {
		return RequestResponse{}, fmt.Errorf("failed to reload request: %w", loadErr)
	}

	return toRequestResponse(*loaded), nil
}

// resolveTarget verifies the optional target id against the table the request
// type points at: tasks for the task family, documents for the document family,
// employees for leave and logistics.
func (s *requestService) resolveTarget(ctx context.Context, requestType, targetID string) (*uuid.UUID, error) {
	if targetID == "" {
		return nil, nil
	}

	parsed, err := uuid.Parse(targetID)
	if err != nil {
		return nil, apperror.Validation("invalid target id")
	}

	switch requestType {
	case model.RequestTypeTaskHelp, model.RequestTypeTaskExtension,
		model.RequestTypeDepartmentTask, model.RequestTypeHRTask:
		if _, err := s.taskRepo.FindByID(ctx, parsed); err != nil {
			return nil, apperror.NotFound("target task not found")
		}
	case model.RequestTypeDocumentApproval, model.RequestTypeRegistration:
		if _, err := s.docRepo.FindByID(ctx, parsed); err != nil {
			return nil, apperror.NotFound("target document not found")
		}
	default:
		if _, err := s.userRepo.GetByID(ctx, parsed.String()); err != nil {
			return nil, apperror.NotFound("target employee not found")
		}
	}

	return &parsed, nil
}

// notifyReviewers fans a submission notification out to every user whose role may
// decide the request. Failures are already swallowed inside the dispatcher.
func (s *requestService) notifyReviewers(ctx context.Context, request *model.Request) {
	reviewers, err := s.userRepo.ListByRoles(ctx, policy.ReviewerRoles(request.Type))
	if err != nil {
		return
	}

	message := fmt.Sprintf("New %s request '%s' awaits review", request.Type, request.Title)
	for _, reviewer := range reviewers {
		if reviewer.ID == request.RequesterID {
			continue
		}
		s.notifier.Notify(ctx, reviewer.ID, request.ID, model.EventRequestSubmitted, message)
	}
}

// validatePayload enforces the per-type required payload fields. Everything beyond
// these keys is opaque to the engine and kept verbatim in the jsonb snapshot.
func validatePayload(requestType string, payload json.RawMessage) error {
	if !json.Valid(payload) {
		return apperror.Validation("payload must be valid JSON")
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return apperror.Validation("payload must be a JSON object")
	}

	switch requestType {
	case model.RequestTypeTaskHelp:
		if stringField(fields, "task_summary") == "" {
			return apperror.Validation("task_summary is required for task help requests")
		}
	case model.RequestTypeTaskExtension:
		days, ok := numberField(fields, "extension_days")
		if !ok || days <= 0 || days != float64(int(days)) {
			return apperror.Validation("extension_days must be a positive whole number")
		}
	case model.RequestTypeDepartmentTask, model.RequestTypeHRTask:
		if stringField(fields, "department") == "" {
			return apperror.Validation("department is required")
		}
	case model.RequestTypeLogisticsItem:
		if stringField(fields, "item_name") == "" {
			return apperror.Validation("item_name is required for logistics requests")
		}
		qty, ok := numberField(fields, "quantity")
		if !ok || qty <= 0 || qty != float64(int(qty)) {
			return apperror.Validation("quantity must be a positive whole number")
		}
		if raw, ok := fields["estimated_cost"]; ok {
			cost, err := parseDecimal(raw)
			if err != nil || cost.IsNegative() {
				return apperror.Validation("estimated_cost must be a non-negative amount")
			}
		}
	case model.RequestTypeLeave:
		start, err := time.Parse("2006-01-02", stringField(fields, "start_date"))
		if err != nil {
			return apperror.Validation("start_date must be a YYYY-MM-DD date")
		}
		end, err := time.Parse("2006-01-02", stringField(fields, "end_date"))
		if err != nil {
			return apperror.Validation("end_date must be a YYYY-MM-DD date")
		}
		if end.Before(start) {
			return apperror.Validation("end_date must not be before start_date")
		}
	}

	return nil
}

func stringField(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return s
}

func numberField(fields map[string]interface{}, key string) (float64, bool) {
	n, ok := fields[key].(float64)
	return n, ok
}

func parseDecimal(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount type %T", raw)
	}
}

// --- Helpers ---

func toRequestResponse(r model.Request) RequestResponse {
	resp := RequestResponse{
		ID:              r.ID.String(),
		Type:            r.Type,
		RequesterID:     r.RequesterID.String(),
		Title:           r.Title,
		Description:     r.Description,
		Urgency:         r.Urgency,
		Payload:         r.Payload,
		Status:          r.Status,
		ResponseMessage: r.ResponseMessage,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}

	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.TargetID != nil {
		s := r.TargetID.String()
		resp.TargetID = &s
	}
	if r.ReviewerID != nil {
		s := r.ReviewerID.String()
		resp.ReviewerID = &s
	}
	if r.Reviewer != nil {
		resp.ReviewerName = r.Reviewer.Username
	}
	if r.DecidedAt != nil {
		s := r.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &s
	}

	return resp
}
