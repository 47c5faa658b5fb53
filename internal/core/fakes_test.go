package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"flashconcards-backend/internal/db"
	"flashconcards-backend/internal/models"
	"flashconcards-backend/internal/payments"
)

// In-memory implementations of the repositories and collaborators used by the services.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
	// grantErr is returned by the next AddPurchasedCourse call, then cleared.
	grantErr error
	// hideNext makes the next GetByID report not found, as a concurrent creator would see it.
	hideNext bool
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if r.hideNext {
		r.hideNext = false
		ok = false
	}
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, db.ErrNotFound)
	}
	cp := *u
	cp.Favorites = append([]string(nil), u.Favorites...)
	cp.PurchasedCourses = append([]string(nil), u.PurchasedCourses...)
	return &cp, nil
}

func (r *memUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, db.ErrAlreadyExists)
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) mutate(id string, fn func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, db.ErrNotFound)
	}
	fn(u)
	return nil
}

func (r *memUserRepo) SetSelectedCourse(_ context.Context, id, courseID string) error {
	return r.mutate(id, func(u *models.User) { u.SelectedCourseID = courseID })
}

func (r *memUserRepo) SetFavorite(_ context.Context, id, itemID string, favorite bool) error {
	return r.mutate(id, func(u *models.User) {
		u.Favorites = setMember(u.Favorites, itemID, favorite)
	})
}

func (r *memUserRepo) SetStudySummary(_ context.Context, id, summary string) error {
	return r.mutate(id, func(u *models.User) { u.StudySummary = summary })
}

func (r *memUserRepo) AddPurchasedCourse(_ context.Context, id, courseID string) error {
	r.mu.Lock()
	if err := r.grantErr; err != nil {
		r.grantErr = nil
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()
	return r.mutate(id, func(u *models.User) {
		u.PurchasedCourses = setMember(u.PurchasedCourses, courseID, true)
	})
}

func setMember(list []string, item string, present bool) []string {
	out := make([]string, 0, len(list)+1)
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	if present {
		out = append(out, item)
	}
	return out
}

type memMessageRepo struct {
	mu     sync.Mutex
	seq    int
	byUser map[string][]*models.ChatMessage
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{byUser: map[string][]*models.ChatMessage{}}
}

func (r *memMessageRepo) Create(_ context.Context, userID string, msg *models.ChatMessage) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	msg.ID = fmt.Sprintf("m%d", r.seq)
	cp := *msg
	r.byUser[userID] = append(r.byUser[userID], &cp)
	return msg.ID, nil
}

func (r *memMessageRepo) ListBySurface(_ context.Context, userID, surface string, limit int) ([]*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ChatMessage
	for _, m := range r.byUser[userID] {
		if m.Surface == surface {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *memMessageRepo) deleteOlder(userID string, cutoff time.Time) int {
	kept := r.byUser[userID][:0]
	deleted := 0
	for _, m := range r.byUser[userID] {
		if m.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.byUser[userID] = kept
	return deleted
}

func (r *memMessageRepo) DeleteOlderThan(_ context.Context, userID string, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteOlder(userID, cutoff), nil
}

func (r *memMessageRepo) DeleteAllOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for uid := range r.byUser {
		total += r.deleteOlder(uid, cutoff)
	}
	return total, nil
}

func (r *memMessageRepo) count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userID])
}

type memCourseRepo struct {
	mu        sync.Mutex
	seq       int
	courses   map[string]*models.Course
	content   map[string]*models.CourseContent
	listCalls int
}

func newMemCourseRepo(courses ...*models.Course) *memCourseRepo {
	r := &memCourseRepo{courses: map[string]*models.Course{}, content: map[string]*models.CourseContent{}}
	for _, c := range courses {
		r.courses[c.ID] = c
	}
	return r
}

func (r *memCourseRepo) List(_ context.Context) ([]*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := make([]*models.Course, 0, len(r.courses))
	for _, c := range r.courses {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCourseRepo) GetByID(_ context.Context, id string) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", id, db.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (r *memCourseRepo) Create(_ context.Context, c *models.Course) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = fmt.Sprintf("course-%d", r.seq)
	cp := *c
	r.courses[c.ID] = &cp
	return c.ID, nil
}

func (r *memCourseRepo) Update(_ context.Context, c *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.courses[c.ID] = &cp
	return nil
}

func (r *memCourseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return fmt.Errorf("course %s: %w", id, db.ErrNotFound)
	}
	delete(r.courses, id)
	return nil
}

func (r *memCourseRepo) GetContent(_ context.Context, courseID, section string) (*models.CourseContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.content[courseID+"/"+section]
	if !ok {
		return nil, fmt.Errorf("content: %w", db.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (r *memCourseRepo) SetContent(_ context.Context, c *models.CourseContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.content[c.CourseID+"/"+c.Section] = &cp
	return nil
}

type memTxnRepo struct {
	mu   sync.Mutex
	txns map[string]*models.Transaction
}

func newMemTxnRepo() *memTxnRepo {
	return &memTxnRepo{txns: map[string]*models.Transaction{}}
}

func (r *memTxnRepo) Create(_ context.Context, t *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.txns[t.ID]; ok {
		return fmt.Errorf("txn %s: %w", t.ID, db.ErrAlreadyExists)
	}
	cp := *t
	r.txns[t.ID] = &cp
	return nil
}

func (r *memTxnRepo) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok {
		return nil, fmt.Errorf("txn %s: %w", id, db.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *memTxnRepo) MarkPaid(_ context.Context, id, paymentID string, paidAt time.Time) (*models.Transaction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok {
		return nil, false, fmt.Errorf("txn %s: %w", id, db.ErrNotFound)
	}
	if t.Status == models.TransactionPaid {
		cp := *t
		return &cp, true, nil
	}
	t.Status = models.TransactionPaid
	t.PaidAt = &paidAt
	if paymentID != "" {
		t.PaymentID = paymentID
	}
	cp := *t
	return &cp, false, nil
}

func (r *memTxnRepo) SetPaymentID(_ context.Context, id, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok {
		return fmt.Errorf("txn %s: %w", id, db.ErrNotFound)
	}
	t.PaymentID = paymentID
	return nil
}

func (r *memTxnRepo) MarkFailed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok {
		return fmt.Errorf("txn %s: %w", id, db.ErrNotFound)
	}
	if t.Status != models.TransactionPaid {
		t.Status = models.TransactionFailed
	}
	return nil
}

func (r *memTxnRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txns)
}

// memCache is a map-backed cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string]string
	hits int
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

type fakeGateway struct {
	mu            sync.Mutex
	pixErr        error
	provisionErr  error
	pixCalls      []payments.PixRequest
	provisionReqs []payments.ProvisionRequest
}

func (g *fakeGateway) CreatePixPayment(_ context.Context, req payments.PixRequest) (*payments.PixResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pixCalls = append(g.pixCalls, req)
	if g.pixErr != nil {
		return nil, g.pixErr
	}
	return &payments.PixResponse{PaymentID: "mp-" + req.TransactionID, Status: "pending", QRCode: "000201PIX"}, nil
}

func (g *fakeGateway) ProvisionAccount(_ context.Context, req payments.ProvisionRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.provisionReqs = append(g.provisionReqs, req)
	return g.provisionErr
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	queues []string
	bodies [][]byte
}

func (p *fakePublisher) Publish(_ context.Context, queue string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues = append(p.queues, queue)
	p.bodies = append(p.bodies, body)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

// scriptedAssistant records every Ask and answers with reply.
type scriptedAssistant struct {
	mu       sync.Mutex
	reply    Reply
	sessions []*Session
	contexts []PromptContext
	asked    []string
}

func (a *scriptedAssistant) Ask(_ context.Context, s *Session, q string, pc PromptContext) Reply {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, s)
	a.contexts = append(a.contexts, pc)
	a.asked = append(a.asked, q)
	return a.reply
}
