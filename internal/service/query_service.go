package service

import (
	"context"

	"hrops/internal/model"
	"hrops/internal/policy"
	"hrops/internal/repository"
	"hrops/pkg/apperror"

	"github.com/google/uuid"
)

// QueryService is the read-only projection layer. Every result set passes through
// policy.CanView element by element, so the list a user sees and the decisions the
// engine allows can never disagree.
type QueryService interface {
	ListPending(ctx context.Context, actor policy.Actor, requestType string) ([]RequestResponse, error)
	ListForRequester(ctx context.Context, requesterID uuid.UUID) ([]RequestResponse, error)
	ListRequests(ctx context.Context, actor policy.Actor, filter repository.RequestFilter, page, limit int) ([]RequestResponse, int64, error)
	CountPendingByType(ctx context.Context, actor policy.Actor) (map[string]int, error)
}

type queryService struct {
	requestRepo repository.RequestRepository
}

func NewQueryService(requestRepo repository.RequestRepository) QueryService {
	return &queryService{requestRepo: requestRepo}
}

// ListPending returns the actor's approval inbox: pending requests they may view,
// urgency first, oldest first within the same urgency. The repository emits the
// order; this layer only removes what the actor must not see, which keeps the
// contract stable.
func (s *queryService) ListPending(ctx context.Context, actor policy.Actor, requestType string) ([]RequestResponse, error) {
	if requestType != "" && !model.ValidRequestType(requestType) {
		return nil, apperror.Validation("unknown request type '%s'", requestType)
	}

	pending, err := s.requestRepo.ListPending(ctx, requestType)
	if err != nil {
		return nil, err
	}

	result := make([]RequestResponse, 0, len(pending))
	for i := range pending {
		if !policy.CanView(actor, &pending[i]) {
			continue
		}
		result = append(result, toRequestResponse(pending[i]))
	}

	return result, nil
}

// ListForRequester returns the requester's full history, newest first. No policy
// filter is needed: a requester always sees their own requests.
func (s *queryService) ListForRequester(ctx context.Context, requesterID uuid.UUID) ([]RequestResponse, error) {
	requests, err := s.requestRepo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	result := make([]RequestResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toRequestResponse(r))
	}

	return result, nil
}

func (s *queryService) ListRequests(ctx context.Context, actor policy.Actor, filter repository.RequestFilter, page, limit int) ([]RequestResponse, int64, error) {
	if filter.Type != "" && !model.ValidRequestType(filter.Type) {
		return nil, 0, apperror.Validation("unknown request type '%s'", filter.Type)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	requests, total, err := s.requestRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		if !policy.CanView(actor, &requests[i]) {
			continue
		}
		result = append(result, toRequestResponse(requests[i]))
	}

	return result, total, nil
}

// CountPendingByType computes the dashboard badge counts from a single pending
// scan, so repeated calls agree with each other while the store is unchanged.
func (s *queryService) CountPendingByType(ctx context.Context, actor policy.Actor) (map[string]int, error) {
	pending, err := s.requestRepo.ListPending(ctx, "")
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for i := range pending {
		if !policy.CanView(actor, &pending[i]) {
			continue
		}
		counts[pending[i].Type]++
	}

	return counts, nil
}
