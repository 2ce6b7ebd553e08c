package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hrops/internal/model"
	"hrops/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory doubles for the repository interfaces. They reproduce the two
// behaviors the engine depends on: conditional updates that report whether a row
// was hit, and the urgency-first pending order.

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*model.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]*model.Request)}
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *model.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	clone := *req
	f.requests[req.ID] = &clone
	return nil
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *req
	return &clone, nil
}

func (f *fakeRequestRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRequestRepo) List(ctx context.Context, filter repository.RequestFilter, page, limit int) ([]model.Request, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Request
	for _, req := range f.requests {
		if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (f *fakeRequestRepo) ListPending(ctx context.Context, requestType string) ([]model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Request
	for _, req := range f.requests {
		if req.Status != model.RequestStatusPending {
			continue
		}
		if requestType != "" && req.Type != requestType {
			continue
		}
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := model.UrgencyRank(out[i].Urgency), model.UrgencyRank(out[j].Urgency)
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeRequestRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Request
	for _, req := range f.requests {
		if req.RequesterID == requesterID {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRequestRepo) UpdateDecision(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID, decidedAt time.Time, responseMessage string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return false, nil
	}
	req.Status = status
	req.ReviewerID = &reviewerID
	req.DecidedAt = &decidedAt
	req.ResponseMessage = responseMessage
	return true, nil
}

func (f *fakeRequestRepo) UpdateProgress(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok || req.Status != fromStatus {
		return false, nil
	}
	req.Status = toStatus
	return true, nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*model.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[uuid.UUID]*model.Task)}
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	clone := *task
	f.tasks[task.ID] = &clone
	return nil
}

func (f *fakeTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *task
	return &clone, nil
}

func (f *fakeTaskRepo) List(ctx context.Context, department string, page, limit int) ([]model.Task, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, task := range f.tasks {
		if department != "" && task.Department != department {
			continue
		}
		out = append(out, *task)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *task
	f.tasks[task.ID] = &clone
	return nil
}

type fakeDocumentRepo struct {
	mu     sync.Mutex
	docs   map[uuid.UUID]*model.Document
	regSeq int
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[uuid.UUID]*model.Document)}
}

func (f *fakeDocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	clone := *doc
	f.docs[doc.ID] = &clone
	return nil
}

func (f *fakeDocumentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *doc
	return &clone, nil
}

func (f *fakeDocumentRepo) List(ctx context.Context, kind string, page, limit int) ([]model.Document, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, doc := range f.docs {
		if kind != "" && doc.Kind != kind {
			continue
		}
		out = append(out, *doc)
	}
	return out, int64(len(out)), nil
}

func (f *fakeDocumentRepo) AssignRegistrationNo(ctx context.Context, id uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	f.regSeq++
	doc.RegistrationNo = fmt.Sprintf("REG-20250101-%05d", f.regSeq)
	return doc.RegistrationNo, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) add(user *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	clone := *user
	f.users[user.ID] = &clone
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) ListByRoles(ctx context.Context, roles []string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	var out []model.User
	for _, user := range f.users {
		if roleSet[user.Role] {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, parsed)
	return nil
}

func (f *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return nil
}

func (f *fakeUserRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.AuditLog{}, f.entries...)
	return out, int64(len(out)), nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// fakeTxManager runs the function directly: the conditional updates in the fake
// request repo carry the atomicity the tests exercise.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type sentNotification struct {
	RecipientID uuid.UUID
	RequestID   uuid.UUID
	EventKind   string
	Message     string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(ctx context.Context, recipientID, requestID uuid.UUID, eventKind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{recipientID, requestID, eventKind, message})
}

func (f *fakeNotifier) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	return nil, 0, nil
}

func (f *fakeNotifier) MarkRead(ctx context.Context, id string, userID uuid.UUID) error {
	return nil
}

func (f *fakeNotifier) all() []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentNotification{}, f.sent...)
}
