package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"hrops/internal/model"
	"hrops/internal/policy"
	"hrops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc      RequestService
	requests *fakeRequestRepo
	tasks    *fakeTaskRepo
	docs     *fakeDocumentRepo
	users    *fakeUserRepo
	audit    *fakeAuditRepo
	notifier *fakeNotifier

	employee   *model.User
	supervisor *model.User
	manager    *model.User
	clerk      *model.User
	hrAdmin    *model.User
	admin      *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		requests: newFakeRequestRepo(),
		tasks:    newFakeTaskRepo(),
		docs:     newFakeDocumentRepo(),
		users:    newFakeUserRepo(),
		audit:    &fakeAuditRepo{},
		notifier: &fakeNotifier{},
	}

	env.employee = &model.User{Username: "dana", Email: "dana@example.com", Role: policy.RoleEmployee}
	env.supervisor = &model.User{Username: "sam", Email: "sam@example.com", Role: policy.RoleSupervisor}
	env.manager = &model.User{Username: "lee", Email: "lee@example.com", Role: policy.RoleLogisticsManager}
	env.clerk = &model.User{Username: "pat", Email: "pat@example.com", Role: policy.RoleProcurement}
	env.hrAdmin = &model.User{Username: "harper", Email: "harper@example.com", Role: policy.RoleHRAdmin}
	env.admin = &model.User{Username: "root", Email: "root@example.com", Role: policy.RoleAdmin}
	for _, u := range []*model.User{env.employee, env.supervisor, env.manager, env.clerk, env.hrAdmin, env.admin} {
		env.users.add(u)
	}

	env.svc = NewRequestService(env.requests, env.tasks, env.docs, env.users, env.audit, fakeTxManager{}, env.notifier)
	return env
}

func actorFor(u *model.User, perms ...string) policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role, Permissions: perms}
}

func leaveInput() SubmitRequestInput {
	return SubmitRequestInput{
		Type:        model.RequestTypeLeave,
		Title:       "Annual leave in March",
		Description: "Taking a week off for a family visit",
		Payload:     json.RawMessage(`{"start_date":"2025-03-01","end_date":"2025-03-05"}`),
	}
}

func logisticsInput() SubmitRequestInput {
	return SubmitRequestInput{
		Type:        model.RequestTypeLogisticsItem,
		Title:       "Two laptops for the new hires",
		Description: "Replacement hardware for the onboarding batch",
		Urgency:     model.UrgencyHigh,
		Payload:     json.RawMessage(`{"item_name":"Laptop","quantity":2,"estimated_cost":"1500.00"}`),
	}
}

func TestSubmitRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)

	input := leaveInput()
	input.Type = "vacation"

	_, err := env.svc.Submit(context.Background(), env.employee.ID, input)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestSubmitRejectsShortDescription(t *testing.T) {
	env := newTestEnv(t)

	input := leaveInput()
	input.Description = "too short"

	_, err := env.svc.Submit(context.Background(), env.employee.ID, input)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestSubmitRejectsUnknownUrgency(t *testing.T) {
	env := newTestEnv(t)

	input := leaveInput()
	input.Urgency = "asap"

	_, err := env.svc.Submit(context.Background(), env.employee.ID, input)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestSubmitPayloadValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name        string
		requestType string
		payload     string
	}{
		{"task help without summary", model.RequestTypeTaskHelp, `{}`},
		{"extension days missing", model.RequestTypeTaskExtension, `{}`},
		{"extension days negative", model.RequestTypeTaskExtension, `{"extension_days":-3}`},
		{"extension days fractional", model.RequestTypeTaskExtension, `{"extension_days":1.5}`},
		{"department task without department", model.RequestTypeDepartmentTask, `{}`},
		{"logistics without item name", model.RequestTypeLogisticsItem, `{"quantity":2}`},
		{"logistics zero quantity", model.RequestTypeLogisticsItem, `{"item_name":"Desk","quantity":0}`},
		{"logistics negative cost", model.RequestTypeLogisticsItem, `{"item_name":"Desk","quantity":1,"estimated_cost":"-5"}`},
		{"leave bad start date", model.RequestTypeLeave, `{"start_date":"March 1st","end_date":"2025-03-05"}`},
		{"leave end before start", model.RequestTypeLeave, `{"start_date":"2025-03-10","end_date":"2025-03-05"}`},
		{"payload not an object", model.RequestTypeLeave, `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := SubmitRequestInput{
				Type:        tt.requestType,
				Title:       "A request",
				Description: "A description long enough to pass",
				Payload:     json.RawMessage(tt.payload),
			}
			_, err := env.svc.Submit(context.Background(), env.employee.ID, input)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
		})
	}
}

func TestSubmitDefaultsAndAudit(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Submit(context.Background(), env.employee.ID, leaveInput())
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusPending, resp.Status)
	assert.Equal(t, model.UrgencyMedium, resp.Urgency, "urgency defaults to medium")
	assert.Nil(t, resp.ReviewerID)
	assert.Nil(t, resp.DecidedAt)
	assert.Contains(t, env.audit.actions(), model.ActionSubmitRequest)
}

func TestSubmitNotifiesLeaveReviewers(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Submit(context.Background(), env.employee.ID, leaveInput())
	require.NoError(t, err)

	recipients := make(map[uuid.UUID]bool)
	for _, n := range env.notifier.all() {
		assert.Equal(t, model.EventRequestSubmitted, n.EventKind)
		recipients[n.RecipientID] = true
	}
	assert.True(t, recipients[env.supervisor.ID], "supervisor is notified")
	assert.True(t, recipients[env.admin.ID], "admin is notified")
	assert.False(t, recipients[env.employee.ID], "requester is not notified about their own submission")
}

func TestSubmitTargetMustExist(t *testing.T) {
	env := newTestEnv(t)

	input := SubmitRequestInput{
		Type:        model.RequestTypeTaskHelp,
		TargetID:    uuid.New().String(),
		Title:       "Need help with the report",
		Description: "The quarterly report needs a second pair of hands",
		Payload:     json.RawMessage(`{"task_summary":"quarterly report"}`),
	}

	_, err := env.svc.Submit(context.Background(), env.employee.ID, input)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDecideApproveSetsReviewerAndTimestampTogether(t *testing.T) {
	env := newTestEnv(t)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, leaveInput())
	require.NoError(t, err)

	decided, err := env.svc.Decide(context.Background(), submitted.ID, actorFor(env.supervisor), model.RequestStatusApproved, "enjoy your leave")
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusApproved, decided.Status)
	require.NotNil(t, decided.ReviewerID)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, env.supervisor.ID.String(), *decided.ReviewerID)
	assert.Contains(t, env.audit.actions(), model.ActionApproveRequest)

	// The requester hears about the outcome
	var found bool
	for _, n := range env.notifier.all() {
		if n.EventKind == model.EventRequestApproved && n.RecipientID == env.employee.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDecideRejectionRequiresMessage(t *testing.T) {
	env := newTestEnv(t)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, leaveInput())
	require.NoError(t, err)

	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.supervisor), model.RequestStatusRejected, "")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	rejected, err := env.svc.Decide(context.Background(), submitted.ID, actorFor(env.supervisor), model.RequestStatusRejected, "dates clash with the release")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, rejected.Status)
	assert.Equal(t, "dates clash with the release", rejected.ResponseMessage)
}

func TestDecideSelfApprovalIsInvalidRegardlessOfRole(t *testing.T) {
	env := newTestEnv(t)

	// Even the admin cannot decide a request they submitted themselves
	submitted, err := env.svc.Submit(context.Background(), env.admin.ID, leaveInput())
	require.NoError(t, err)

	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.admin), model.RequestStatusApproved, "")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation), "self-approval is invalid input, not an authorization failure")
}

func TestDecideForbiddenForIneligibleRole(t *testing.T) {
	env := newTestEnv(t)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, logisticsInput())
	require.NoError(t, err)

	// A supervisor has no say over logistics purchases
	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.supervisor), model.RequestStatusApproved, "")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestDecideUnknownRequest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Decide(context.Background(), uuid.New().String(), actorFor(env.supervisor), model.RequestStatusApproved, "")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDecideTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, leaveInput())
	require.NoError(t, err)

	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.supervisor), model.RequestStatusApproved, "")
	require.NoError(t, err)

	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.admin), model.RequestStatusRejected, "changed my mind")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestDecideConcurrentExactlyOneWinner(t *testing.T) {
	env := newTestEnv(t)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, leaveInput())
	require.NoError(t, err)

	const reviewers = 8
	var wg sync.WaitGroup
	errs := make([]error, reviewers)

	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reviewer := &model.User{Username: "r", Email: "r@example.com", Role: policy.RoleSupervisor}
			env.users.add(reviewer)
			_, errs[i] = env.svc.Decide(context.Background(), submitted.ID, actorFor(reviewer), model.RequestStatusApproved, "")
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperror.Is(err, apperror.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes, "exactly one decision lands")
	assert.Equal(t, reviewers-1, conflicts)

	final, err := env.requests.FindByID(context.Background(), uuid.MustParse(submitted.ID))
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, final.Status)
	require.NotNil(t, final.ReviewerID)
	require.NotNil(t, final.DecidedAt)
}

func TestAdvanceLogisticsChain(t *testing.T) {
	env := newTestEnv(t)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, logisticsInput())
	require.NoError(t, err)

	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.manager), model.RequestStatusApproved, "")
	require.NoError(t, err)

	// Skipping straight to delivered is a transition-order violation
	_, err = env.svc.Advance(context.Background(), submitted.ID, actorFor(env.clerk), model.RequestStatusDelivered)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindUnprocessable))

	purchased, err := env.svc.Advance(context.Background(), submitted.ID, actorFor(env.clerk), model.RequestStatusPurchased)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPurchased, purchased.Status)

	delivered, err := env.svc.Advance(context.Background(), submitted.ID, actorFor(env.clerk), model.RequestStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusDelivered, delivered.Status)

	// The clerk cannot close out the request
	_, err = env.svc.Advance(context.Background(), submitted.ID, actorFor(env.clerk), model.RequestStatusCompleted)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	completed, err := env.svc.Advance(context.Background(), submitted.ID, actorFor(env.manager), model.RequestStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCompleted, completed.Status)
	assert.Contains(t, env.audit.actions(), model.ActionAdvanceRequest)
}

func TestAdvanceRejectedForSimpleTypes(t *testing.T) {
	env := newTestEnv(t)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, leaveInput())
	require.NoError(t, err)

	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.supervisor), model.RequestStatusApproved, "")
	require.NoError(t, err)

	_, err = env.svc.Advance(context.Background(), submitted.ID, actorFor(env.admin), model.RequestStatusPurchased)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindUnprocessable), "leave has no post-approval states")
}

func TestAdvanceUnknownNextState(t *testing.T) {
	env := newTestEnv(t)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, logisticsInput())
	require.NoError(t, err)

	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.manager), model.RequestStatusApproved, "")
	require.NoError(t, err)

	_, err = env.svc.Advance(context.Background(), submitted.ID, actorFor(env.manager), "shipped")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindUnprocessable))
}

func TestCompletedRegistrationStampsDocument(t *testing.T) {
	env := newTestEnv(t)

	doc := &model.Document{Title: "Employment contract", Kind: model.DocKindContract, OwnerID: env.employee.ID}
	require.NoError(t, env.docs.Create(context.Background(), doc))

	input := SubmitRequestInput{
		Type:        model.RequestTypeDocumentApproval,
		TargetID:    doc.ID.String(),
		Title:       "Register the new contract",
		Description: "Contract for the new hire needs registering",
	}
	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, input)
	require.NoError(t, err)

	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.hrAdmin), model.RequestStatusApproved, "")
	require.NoError(t, err)

	for _, next := range []string{model.RequestStatusPurchased, model.RequestStatusDelivered, model.RequestStatusCompleted} {
		_, err = env.svc.Advance(context.Background(), submitted.ID, actorFor(env.hrAdmin), next)
		require.NoError(t, err)
	}

	stamped, err := env.docs.FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stamped.RegistrationNo)
	assert.Contains(t, env.audit.actions(), model.ActionRegisterDoc)
}

func TestGetEnforcesVisibility(t *testing.T) {
	env := newTestEnv(t)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, logisticsInput())
	require.NoError(t, err)

	// A second employee cannot peek at someone else's purchase request
	other := &model.User{Username: "riley", Email: "riley@example.com", Role: policy.RoleEmployee}
	env.users.add(other)

	_, err = env.svc.Get(context.Background(), actorFor(other), submitted.ID)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	own, err := env.svc.Get(context.Background(), actorFor(env.employee), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted.ID, own.ID)
}

func TestLeaveLifecycleEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	queries := NewQueryService(env.requests)

	submitted, err := env.svc.Submit(context.Background(), env.employee.ID, leaveInput())
	require.NoError(t, err)

	// The supervisor's inbox picks up the new request
	inbox, err := queries.ListPending(context.Background(), actorFor(env.supervisor), "")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, submitted.ID, inbox[0].ID)

	_, err = env.svc.Decide(context.Background(), submitted.ID, actorFor(env.supervisor), model.RequestStatusApproved, "approved, enjoy")
	require.NoError(t, err)

	// Once decided it leaves the inbox and shows up decided in the requester's history
	inbox, err = queries.ListPending(context.Background(), actorFor(env.supervisor), "")
	require.NoError(t, err)
	assert.Empty(t, inbox)

	history, err := queries.ListForRequester(context.Background(), env.employee.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.RequestStatusApproved, history[0].Status)
	require.NotNil(t, history[0].ReviewerID)
	assert.Equal(t, env.supervisor.ID.String(), *history[0].ReviewerID)
}
