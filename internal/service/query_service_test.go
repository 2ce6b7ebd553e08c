package service

import (
	"context"
	"testing"
	"time"

	"hrops/internal/model"
	"hrops/internal/policy"
	"hrops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPending(t *testing.T, repo *fakeRequestRepo, requesterID uuid.UUID, requestType, urgency, title string, createdAt time.Time) {
	t.Helper()
	req := &model.Request{
		Type:        requestType,
		RequesterID: requesterID,
		Title:       title,
		Description: "seeded for ordering checks",
		Urgency:     urgency,
		Payload:     "{}",
		Status:      model.RequestStatusPending,
		CreatedAt:   createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), req))
}

func TestListPendingOrdering(t *testing.T) {
	repo := newFakeRequestRepo()
	requesterID := uuid.New()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seedPending(t, repo, requesterID, model.RequestTypeLeave, model.UrgencyLow, "low-t1", base.Add(1*time.Hour))
	seedPending(t, repo, requesterID, model.RequestTypeLeave, model.UrgencyUrgent, "urgent-t2", base.Add(2*time.Hour))
	seedPending(t, repo, requesterID, model.RequestTypeLeave, model.UrgencyMedium, "medium-t3", base.Add(3*time.Hour))
	seedPending(t, repo, requesterID, model.RequestTypeLeave, model.UrgencyUrgent, "urgent-t4", base.Add(4*time.Hour))

	svc := NewQueryService(repo)
	admin := policy.Actor{ID: uuid.New(), Role: policy.RoleAdmin}

	pending, err := svc.ListPending(context.Background(), admin, "")
	require.NoError(t, err)
	require.Len(t, pending, 4)

	// Urgency first, oldest first within the same urgency
	titles := make([]string, 0, len(pending))
	for _, p := range pending {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"urgent-t2", "urgent-t4", "medium-t3", "low-t1"}, titles)
}

func TestListPendingFiltersVisibility(t *testing.T) {
	repo := newFakeRequestRepo()
	requesterID := uuid.New()

	now := time.Now()
	seedPending(t, repo, requesterID, model.RequestTypeLeave, model.UrgencyMedium, "leave", now)
	seedPending(t, repo, requesterID, model.RequestTypeLogisticsItem, model.UrgencyMedium, "logistics", now.Add(time.Minute))
	seedPending(t, repo, requesterID, model.RequestTypeDocumentApproval, model.UrgencyMedium, "document", now.Add(2*time.Minute))

	svc := NewQueryService(repo)

	supervisor := policy.Actor{ID: uuid.New(), Role: policy.RoleSupervisor}
	pending, err := svc.ListPending(context.Background(), supervisor, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "leave", pending[0].Title)

	manager := policy.Actor{ID: uuid.New(), Role: policy.RoleLogisticsManager}
	pending, err = svc.ListPending(context.Background(), manager, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "logistics", pending[0].Title)

	// The requester sees all of their own, whatever the type
	own, err := svc.ListPending(context.Background(), policy.Actor{ID: requesterID, Role: policy.RoleEmployee}, "")
	require.NoError(t, err)
	assert.Len(t, own, 3)
}

func TestListPendingRejectsUnknownType(t *testing.T) {
	svc := NewQueryService(newFakeRequestRepo())

	_, err := svc.ListPending(context.Background(), policy.Actor{ID: uuid.New(), Role: policy.RoleAdmin}, "vacation")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestListForRequesterNewestFirst(t *testing.T) {
	repo := newFakeRequestRepo()
	requesterID := uuid.New()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seedPending(t, repo, requesterID, model.RequestTypeLeave, model.UrgencyMedium, "first", base)
	seedPending(t, repo, requesterID, model.RequestTypeLeave, model.UrgencyMedium, "second", base.Add(time.Hour))
	seedPending(t, repo, uuid.New(), model.RequestTypeLeave, model.UrgencyMedium, "someone else", base.Add(2*time.Hour))

	svc := NewQueryService(repo)

	history, err := svc.ListForRequester(context.Background(), requesterID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Title)
	assert.Equal(t, "first", history[1].Title)
}

func TestCountPendingByType(t *testing.T) {
	repo := newFakeRequestRepo()
	requesterID := uuid.New()

	now := time.Now()
	seedPending(t, repo, requesterID, model.RequestTypeLeave, model.UrgencyMedium, "l1", now)
	seedPending(t, repo, requesterID, model.RequestTypeLeave, model.UrgencyHigh, "l2", now.Add(time.Minute))
	seedPending(t, repo, requesterID, model.RequestTypeLogisticsItem, model.UrgencyMedium, "g1", now.Add(2*time.Minute))

	svc := NewQueryService(repo)

	counts, err := svc.CountPendingByType(context.Background(), policy.Actor{ID: uuid.New(), Role: policy.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.RequestTypeLeave])
	assert.Equal(t, 1, counts[model.RequestTypeLogisticsItem])

	// A supervisor's badge counts only cover what they can act on
	counts, err = svc.CountPendingByType(context.Background(), policy.Actor{ID: uuid.New(), Role: policy.RoleSupervisor})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.RequestTypeLeave])
	assert.Zero(t, counts[model.RequestTypeLogisticsItem])
}
