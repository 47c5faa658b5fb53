package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"flashconcards-backend/internal/ai"
)

// User-facing texts returned by the orchestrator.
const (
	MissingAPIKeyMessage = "A chave da API do Gemini não está configurada. Peça ao administrador para definir GEMINI_API_KEY e tente novamente."

	GenericErrorMessage = "Desculpe, não consegui processar sua pergunta agora. Tente novamente em alguns instantes."

	SafetyBlockedMessage = "Não posso responder a essa pergunta porque ela foi bloqueada pelos filtros de segurança do provedor de IA. Reformule a pergunta e tente novamente."

	QuotaExhaustedMessage = "O limite diário de uso gratuito da IA foi atingido.\n\n" +
		"A API do Gemini no plano gratuito permite um número limitado de requisições por dia, e essa cota já foi usada hoje. " +
		"A cota é renovada automaticamente no início do próximo dia.\n\n" +
		"Para voltar a usar o Mentor IA você pode:\n" +
		"• aguardar a renovação da cota diária;\n" +
		"• configurar uma chave da API do Groq (GROQ_API_KEY) como provedor alternativo;\n" +
		"• ativar o faturamento do projeto no Google AI Studio para aumentar o limite."
)

// ReplyStatus describes how a request was resolved.
type ReplyStatus string

const (
	StatusAnswered       ReplyStatus = "answered"
	StatusWaiting        ReplyStatus = "waiting"
	StatusQuotaExhausted ReplyStatus = "quota_exhausted"
	StatusMissingConfig  ReplyStatus = "missing_config"
	StatusBlocked        ReplyStatus = "blocked"
	StatusFailed         ReplyStatus = "failed"
)

// Reply is the orchestrator's answer: either provider text or a user-facing status string.
type Reply struct {
	Text          string        `json:"text"`
	Status        ReplyStatus   `json:"status"`
	Provider      string        `json:"provider,omitempty"`
	Model         string        `json:"model,omitempty"`
	UsingFallback bool          `json:"usingFallback"`
	RetryAfter    time.Duration `json:"-"`
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	Primary         ai.Provider
	Secondary       ai.Provider // optional
	CandidateModels []string    // probed in order against Primary
	SecondaryModel  string
	Params          ai.GenerationParams
	MinInterval     time.Duration
	HistoryLimit    int
	QuotaLocation   *time.Location // day boundary for the daily-limit flag
	Now             func() time.Time
}

// Orchestrator obtains answers from the primary provider and falls back to
// the secondary once when the primary's quota is exhausted.
type Orchestrator struct {
	cfg    OrchestratorConfig
	logger *zap.Logger
}

var probeParams = ai.GenerationParams{Temperature: 0, MaxOutputTokens: 1}

const probePrompt = "ping"

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig, logger *zap.Logger) (*Orchestrator, error) {
	if cfg.Primary == nil {
		return nil, fmt.Errorf("orchestrator: primary provider is required")
	}
	if len(cfg.CandidateModels) == 0 {
		return nil, fmt.Errorf("orchestrator: at least one candidate model is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.QuotaLocation == nil {
		cfg.QuotaLocation = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg, logger: logger.With(zap.String("component", "orchestrator"))}, nil
}

// Ask answers question within session. It never returns an error: every
// failure is turned into a Reply carrying a user-facing message.
func (o *Orchestrator) Ask(ctx context.Context, session *Session, question string, pc PromptContext) Reply {
	now := o.cfg.Now()
	log := o.logger.With(zap.String("surface", session.key.Surface), zap.String("subject", session.key.Subject))

	if wait, ok := session.admit(now, o.cfg.MinInterval); !ok {
		secs := waitSeconds(wait)
		return Reply{
			Text:       fmt.Sprintf("Aguarde %d segundo(s) antes de enviar uma nova pergunta.", secs),
			Status:     StatusWaiting,
			RetryAfter: time.Duration(secs) * time.Second,
		}
	}

	if !o.cfg.Primary.Configured() {
		log.Warn("Primary AI provider is not configured")
		return Reply{Text: MissingAPIKeyMessage, Status: StatusMissingConfig}
	}

	prompt := BuildPrompt(pc, question, o.cfg.HistoryLimit)
	quotaDay := o.quotaDay(now)

	if session.DailyLimitReached(quotaDay) {
		log.Debug("Daily limit flag set, skipping primary provider")
		return o.fallback(ctx, session, prompt, log)
	}

	model := session.Model()
	if model == "" {
		var reply *Reply
		model, reply = o.probe(ctx, session, quotaDay, log)
		if reply != nil {
			if reply.Status == StatusQuotaExhausted {
				return o.fallback(ctx, session, prompt, log)
			}
			return *reply
		}
	}

	text, err := o.cfg.Primary.Generate(ctx, model, prompt, o.cfg.Params)
	if err == nil {
		session.setUsingFallback(false)
		return Reply{Text: text, Status: StatusAnswered, Provider: o.cfg.Primary.Name(), Model: model}
	}

	kind := ai.Classify(err)
	log.Warn("Primary AI provider call failed", zap.String("model", model), zap.Stringer("kind", kind), zap.Error(err))

	switch kind {
	case ai.KindRateLimit:
		session.markDailyLimit(quotaDay)
		return o.fallback(ctx, session, prompt, log)
	case ai.KindSafety:
		return Reply{Text: SafetyBlockedMessage, Status: StatusBlocked, Provider: o.cfg.Primary.Name(), Model: model}
	case ai.KindMissingConfig:
		return Reply{Text: MissingAPIKeyMessage, Status: StatusMissingConfig}
	default:
		if ai.IsNotFound(err) {
			// The adopted model went away; probe again on the next request.
			session.setModel("")
		}
		return Reply{Text: GenericErrorMessage, Status: StatusFailed}
	}
}

// probe tries each candidate model with a trivial call and adopts the first
// that succeeds. A non-nil reply means no model could be adopted.
func (o *Orchestrator) probe(ctx context.Context, session *Session, quotaDay string, log *zap.Logger) (string, *Reply) {
	rateLimited := false
	for _, candidate := range o.cfg.CandidateModels {
		_, err := o.cfg.Primary.Generate(ctx, candidate, probePrompt, probeParams)
		if err == nil {
			session.setModel(candidate)
			log.Info("Adopted primary model", zap.String("model", candidate))
			return candidate, nil
		}

		kind := ai.Classify(err)
		log.Debug("Model probe failed", zap.String("model", candidate), zap.Stringer("kind", kind), zap.Error(err))
		switch kind {
		case ai.KindMissingConfig:
			return "", &Reply{Text: MissingAPIKeyMessage, Status: StatusMissingConfig}
		case ai.KindRateLimit:
			rateLimited = true
		}
		if ctx.Err() != nil {
			break
		}
	}

	if rateLimited {
		session.markDailyLimit(quotaDay)
		return "", &Reply{Status: StatusQuotaExhausted}
	}
	log.Error("No candidate model answered the probe", zap.Strings("candidates", o.cfg.CandidateModels))
	return "", &Reply{Text: GenericErrorMessage, Status: StatusFailed}
}

// fallback makes the single secondary-provider attempt.
func (o *Orchestrator) fallback(ctx context.Context, session *Session, prompt string, log *zap.Logger) Reply {
	quota := Reply{Text: QuotaExhaustedMessage, Status: StatusQuotaExhausted}

	if o.cfg.Secondary == nil || !o.cfg.Secondary.Configured() {
		session.setUsingFallback(false)
		return quota
	}

	text, err := o.cfg.Secondary.Generate(ctx, o.cfg.SecondaryModel, prompt, o.cfg.Params)
	if err != nil {
		log.Warn("Secondary AI provider call failed", zap.Stringer("kind", ai.Classify(err)), zap.Error(err))
		session.setUsingFallback(false)
		return quota
	}

	session.setUsingFallback(true)
	return Reply{
		Text:          text,
		Status:        StatusAnswered,
		Provider:      o.cfg.Secondary.Name(),
		Model:         o.cfg.SecondaryModel,
		UsingFallback: true,
	}
}

func (o *Orchestrator) quotaDay(now time.Time) string {
	return now.In(o.cfg.QuotaLocation).Format("2006-01-02")
}

// waitSeconds rounds the remaining cooldown up to whole seconds.
func waitSeconds(wait time.Duration) int {
	ms := wait.Milliseconds()
	if wait%time.Millisecond != 0 {
		ms++
	}
	return int(math.Ceil(float64(ms) / 1000))
}
