package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"flashconcards-backend/internal/db"
	"flashconcards-backend/internal/models"
)

// Chat surfaces. Mentor and floating chats belong to a signed-in user; the
// sales chat answers anonymous visitors of the landing page.
const (
	SurfaceMentor   = "mentor"
	SurfaceFloating = "floating"
	SurfaceSales    = "sales"
)

const maxQuestionRunes = 4000

// ErrInvalidSurface is returned for chat surfaces other than mentor and floating.
var ErrInvalidSurface = errors.New("invalid chat surface")

var personas = map[string]string{
	SurfaceMentor: "Você é o Mentor IA da FlashConCards, um professor especialista em concursos públicos. " +
		"Responda em português do Brasil, de forma didática e objetiva, usando o edital do curso do aluno como referência. " +
		"Quando a pergunta fugir do conteúdo do edital, avise o aluno.",
	SurfaceFloating: "Você é o assistente rápido da FlashConCards. Responda em português do Brasil com respostas curtas " +
		"e diretas sobre o conteúdo de estudo do aluno.",
	SurfaceSales: "Você é o consultor de vendas da FlashConCards, uma plataforma de preparação para concursos públicos " +
		"com flashcards, simulados e um Mentor IA. Responda em português do Brasil, apresente os cursos disponíveis " +
		"e ajude o visitante a escolher o curso certo. Não invente preços: use apenas os listados abaixo.",
}

// IsUserChatSurface reports whether surface is a persisted, signed-in chat surface.
func IsUserChatSurface(surface string) bool {
	return surface == SurfaceMentor || surface == SurfaceFloating
}

// ChatResult is the outcome of SendMessage. UserMessage and AIMessage are nil
// when the request was rejected by the cadence gate.
type ChatResult struct {
	Reply       Reply               `json:"reply"`
	UserMessage *models.ChatMessage `json:"userMessage,omitempty"`
	AIMessage   *models.ChatMessage `json:"aiMessage,omitempty"`
}

// ChatConfig holds the chat surfaces' tunables.
type ChatConfig struct {
	HistoryLimit int
	MessageTTL   time.Duration
	Now          func() time.Time
}

// chatService implements the ChatService interface on top of one shared Assistant.
type chatService struct {
	assistant   Assistant
	sessions    *SessionStore
	messageRepo db.MessageRepository
	userRepo    db.UserRepository
	courses     CourseService
	cfg         ChatConfig
	logger      *zap.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(
	assistant Assistant,
	sessions *SessionStore,
	messageRepo db.MessageRepository,
	userRepo db.UserRepository,
	courses CourseService,
	cfg ChatConfig,
	logger *zap.Logger,
) ChatService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &chatService{
		assistant:   assistant,
		sessions:    sessions,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		courses:     courses,
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "chat")),
	}
}

func (s *chatService) SendMessage(ctx context.Context, userID, surface, text string) (*ChatResult, error) {
	if !IsUserChatSurface(surface) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSurface, surface)
	}
	question, err := normalizeQuestion(text)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to load user '%s': %w", userID, err)
	}

	history, err := s.messageRepo.ListBySurface(ctx, userID, surface, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	pc := PromptContext{
		Persona:      personas[surface],
		StudySummary: user.StudySummary,
		History:      s.liveMessages(history),
	}
	if user.SelectedCourseID != "" {
		pc.CourseContext = s.sectionText(ctx, user.SelectedCourseID, models.ContentEdital)
		if custom := s.sectionText(ctx, user.SelectedCourseID, models.ContentPrompt); custom != "" {
			pc.Persona += "\n\n" + custom
		}
	}

	askedAt := s.cfg.Now().UTC()
	reply := s.assistant.Ask(ctx, s.sessions.Get(SessionKey{Surface: surface, Subject: userID}), question, pc)
	result := &ChatResult{Reply: reply}
	if reply.Status == StatusWaiting {
		return result, nil
	}

	userMsg := &models.ChatMessage{Text: question, Sender: models.SenderUser, Surface: surface, CreatedAt: askedAt}
	if _, err := s.messageRepo.Create(ctx, userID, userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}
	result.UserMessage = userMsg

	aiAt := s.cfg.Now().UTC()
	if !aiAt.After(askedAt) {
		aiAt = askedAt.Add(time.Millisecond)
	}
	aiMsg := &models.ChatMessage{Text: reply.Text, Sender: models.SenderAI, Surface: surface, CreatedAt: aiAt}
	if _, err := s.messageRepo.Create(ctx, userID, aiMsg); err != nil {
		// The answer is still returned; only its history entry is lost.
		s.logger.Warn("Failed to store AI reply", zap.String("userID", userID), zap.Error(err))
		return result, nil
	}
	result.AIMessage = aiMsg
	return result, nil
}

func (s *chatService) ListMessages(ctx context.Context, userID, surface string) ([]*models.ChatMessage, error) {
	if !IsUserChatSurface(surface) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSurface, surface)
	}

	cutoff := s.cfg.Now().Add(-s.cfg.MessageTTL)
	if n, err := s.messageRepo.DeleteOlderThan(ctx, userID, cutoff); err != nil {
		s.logger.Warn("Failed to purge expired messages", zap.String("userID", userID), zap.Error(err))
	} else if n > 0 {
		s.logger.Debug("Purged expired messages", zap.String("userID", userID), zap.Int("count", n))
	}

	msgs, err := s.messageRepo.ListBySurface(ctx, userID, surface, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}
	return msgs, nil
}

func (s *chatService) AskSales(ctx context.Context, visitorID, text string) (Reply, error) {
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return Reply{}, fmt.Errorf("%w: visitor id is required", ErrInvalidInput)
	}
	question, err := normalizeQuestion(text)
	if err != nil {
		return Reply{}, err
	}

	pc := PromptContext{Persona: personas[SurfaceSales]}
	if courses, err := s.courses.ListActive(ctx); err != nil {
		s.logger.Warn("Sales chat without course catalog", zap.Error(err))
	} else {
		pc.CourseContext = catalogText(courses)
	}

	return s.assistant.Ask(ctx, s.sessions.Get(SessionKey{Surface: SurfaceSales, Subject: visitorID}), question, pc), nil
}

// sectionText returns a content section of a course, or "" when it is missing or unreadable.
func (s *chatService) sectionText(ctx context.Context, courseID, section string) string {
	content, err := s.courses.GetContent(ctx, courseID, section)
	if err != nil {
		if !errors.Is(err, ErrContentNotFound) {
			s.logger.Warn("Failed to load course content", zap.String("courseID", courseID), zap.String("section", section), zap.Error(err))
		}
		return ""
	}
	return content.Text
}

func normalizeQuestion(text string) (string, error) {
	q := strings.TrimSpace(text)
	if q == "" {
		return "", fmt.Errorf("%w: message text is required", ErrInvalidInput)
	}
	return truncateRunes(q, maxQuestionRunes), nil
}

func catalogText(courses []*models.Course) string {
	var sb strings.Builder
	sb.WriteString("Cursos disponíveis:\n")
	for _, c := range courses {
		fmt.Fprintf(&sb, "- %s (%s): R$ %.2f\n", c.Name, c.Competition, c.Price)
	}
	return sb.String()
}

// liveMessages drops messages past MessageTTL that the cleaner has not deleted yet.
func (s *chatService) liveMessages(in []*models.ChatMessage) []models.ChatMessage {
	var cutoff time.Time
	if s.cfg.MessageTTL > 0 {
		cutoff = s.cfg.Now().Add(-s.cfg.MessageTTL)
	}
	out := make([]models.ChatMessage, 0, len(in))
	for _, m := range in {
		if m != nil && !m.CreatedAt.Before(cutoff) {
			out = append(out, *m)
		}
	}
	return out
}
