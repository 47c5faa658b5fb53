package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flashconcards-backend/internal/config"
	"flashconcards-backend/internal/core"
	"flashconcards-backend/internal/middleware"
	"flashconcards-backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testWebhookSecret = "webhook-secret"

type stubVerifier map[string]*auth.Token

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := s[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid token")
}

type fakeUserService struct {
	users    map[string]*models.User
	created  bool
	selected map[string]string
	selErr   error
	favorite bool
	summary  string
}

func (f *fakeUserService) GetOrCreate(_ context.Context, userID, email, displayName string) (*models.User, bool, error) {
	if u, ok := f.users[userID]; ok {
		return u, false, nil
	}
	u := &models.User{ID: userID, Email: email, DisplayName: displayName, Role: models.RoleStudent}
	f.users[userID] = u
	f.created = true
	return u, true, nil
}

func (f *fakeUserService) GetByID(_ context.Context, userID string) (*models.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, core.ErrUserNotFound
}

func (f *fakeUserService) SelectCourse(_ context.Context, userID, courseID string) error {
	if f.selErr != nil {
		return f.selErr
	}
	f.selected[userID] = courseID
	return nil
}

func (f *fakeUserService) ToggleFavorite(_ context.Context, _, _ string) (bool, error) {
	f.favorite = !f.favorite
	return f.favorite, nil
}

func (f *fakeUserService) UpdateStudySummary(_ context.Context, _, summary string) error {
	f.summary = summary
	return nil
}

func (f *fakeUserService) GrantCourse(_ context.Context, _, _ string) error { return nil }

type fakeCourseService struct {
	courses map[string]*models.Course
	content map[string]*models.CourseContent
	deleted []string
}

func (f *fakeCourseService) ListActive(_ context.Context) ([]*models.Course, error) {
	var out []*models.Course
	for _, c := range f.courses {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseService) ListFeatured(_ context.Context) ([]*models.Course, error) {
	var out []*models.Course
	for _, c := range f.courses {
		if c.Active && c.Featured {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseService) Get(_ context.Context, courseID string) (*models.Course, error) {
	if c, ok := f.courses[courseID]; ok {
		return c, nil
	}
	return nil, core.ErrCourseNotFound
}

func (f *fakeCourseService) GetContent(_ context.Context, courseID, section string) (*models.CourseContent, error) {
	if !models.IsValidContentSection(section) {
		return nil, core.ErrInvalidContentSection
	}
	if c, ok := f.content[courseID+"/"+section]; ok {
		return c, nil
	}
	return nil, core.ErrContentNotFound
}

func (f *fakeCourseService) Create(_ context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	c := &models.Course{ID: "new-course", Name: req.Name, Competition: req.Competition, Price: req.Price, Active: req.Active}
	f.courses[c.ID] = c
	return c, nil
}

func (f *fakeCourseService) Update(_ context.Context, courseID string, req models.UpdateCourseRequest) (*models.Course, error) {
	c, ok := f.courses[courseID]
	if !ok {
		return nil, core.ErrCourseNotFound
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	return c, nil
}

func (f *fakeCourseService) Delete(_ context.Context, courseID string) error {
	if _, ok := f.courses[courseID]; !ok {
		return core.ErrCourseNotFound
	}
	delete(f.courses, courseID)
	f.deleted = append(f.deleted, courseID)
	return nil
}

func (f *fakeCourseService) SetContent(_ context.Context, courseID, section, text string) (*models.CourseContent, error) {
	if !models.IsValidContentSection(section) {
		return nil, core.ErrInvalidContentSection
	}
	c := &models.CourseContent{CourseID: courseID, Section: section, Text: text}
	f.content[courseID+"/"+section] = c
	return c, nil
}

type fakeChatService struct {
	result    *core.ChatResult
	reply     core.Reply
	messages  []*models.ChatMessage
	visitorID string
	lastText  string
}

func (f *fakeChatService) SendMessage(_ context.Context, _, surface, text string) (*core.ChatResult, error) {
	if !core.IsUserChatSurface(surface) {
		return nil, core.ErrInvalidSurface
	}
	f.lastText = text
	return f.result, nil
}

func (f *fakeChatService) ListMessages(_ context.Context, _, surface string) ([]*models.ChatMessage, error) {
	if !core.IsUserChatSurface(surface) {
		return nil, core.ErrInvalidSurface
	}
	return f.messages, nil
}

func (f *fakeChatService) AskSales(_ context.Context, visitorID, text string) (core.Reply, error) {
	f.visitorID = visitorID
	f.lastText = text
	return f.reply, nil
}

type fakePaymentService struct {
	checkout     *core.PixCheckout
	createErr    error
	txns         map[string]*models.Transaction
	confirmed    []string
	confirmedPay []string
}

func (f *fakePaymentService) CreatePixPayment(_ context.Context, userID, email, courseID string) (*core.PixCheckout, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.checkout.Transaction.UserID = userID
	f.checkout.Transaction.Email = email
	f.checkout.Transaction.CourseID = courseID
	return f.checkout, nil
}

func (f *fakePaymentService) ConfirmPayment(_ context.Context, transactionID, paymentID string) (*models.Transaction, error) {
	txn, ok := f.txns[transactionID]
	if !ok {
		return nil, core.ErrTransactionNotFound
	}
	f.confirmed = append(f.confirmed, transactionID)
	f.confirmedPay = append(f.confirmedPay, paymentID)
	txn.Status = models.TransactionPaid
	return txn, nil
}

func (f *fakePaymentService) GetTransaction(_ context.Context, userID, transactionID string) (*models.Transaction, error) {
	txn, ok := f.txns[transactionID]
	if !ok || txn.UserID != userID {
		return nil, core.ErrTransactionNotFound
	}
	return txn, nil
}

type testServer struct {
	router   *gin.Engine
	users    *fakeUserService
	courses  *fakeCourseService
	chat     *fakeChatService
	payments *fakePaymentService
}

func newTestServer() *testServer {
	users := &fakeUserService{
		users: map[string]*models.User{
			"s1": {ID: "s1", Email: "s1@example.com", Role: models.RoleStudent},
			"a1": {ID: "a1", Email: "a1@example.com", Role: models.RoleAdmin},
		},
		selected: map[string]string{},
	}
	courses := &fakeCourseService{
		courses: map[string]*models.Course{
			"pf": {ID: "pf", Name: "Polícia Federal", Active: true, Featured: true},
		},
		content: map[string]*models.CourseContent{},
	}
	chat := &fakeChatService{}
	payments := &fakePaymentService{txns: map[string]*models.Transaction{}}

	verifier := stubVerifier{
		"student-token": {UID: "s1", Claims: map[string]interface{}{"email": "s1@example.com", "name": "Aluno"}},
		"admin-token":   {UID: "a1", Claims: map[string]interface{}{"email": "a1@example.com"}},
		"new-token":     {UID: "n1", Claims: map[string]interface{}{"email": "n1@example.com", "name": "Novo"}},
	}
	authMW := middleware.NewAuthMiddleware(verifier, users, zap.NewNop())

	router := gin.New()
	SetupRoutes(router, &config.Config{PaymentWebhookSecret: testWebhookSecret}, zap.NewNop(), authMW, users, courses, chat, payments)

	return &testServer{router: router, users: users, courses: courses, chat: chat, payments: payments}
}

func (s *testServer) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}
