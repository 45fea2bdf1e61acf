package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

// ResponseType tags how a turn was answered.
type ResponseType string

const (
	ResponseAI             ResponseType = "ai_intelligent"
	ResponseFallback       ResponseType = "fallback_firebase"
	ResponsePhoneCollected ResponseType = "phone_collected_fallback"
	ResponseError          ResponseType = "error"
)

const (
	// ErrorReply is the only thing a user sees when a turn blows up.
	ErrorReply = "Desculpe, ocorreu um erro interno. Nossa equipe foi notificada."
	// GreetingReply replaces an empty response on any path.
	GreetingReply = "Olá! Como posso ajudá-lo hoje?"

	placeholderName      = "Não informado"
	placeholderArea      = "Não informada"
	placeholderSituation = "Não detalhada"
)

// SessionStore loads and saves whole sessions. GetSession returns (nil, nil)
// when the session does not exist.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	SaveSession(ctx context.Context, s *domain.Session) error
}

// LeadStore persists the write-once lead record of a session.
type LeadStore interface {
	SaveLead(ctx context.Context, sessionID string, answers []domain.LeadAnswer) error
}

// AIContext is what the AI backend knows about the prospective client.
type AIContext struct {
	Platform  string
	Name      string
	Area      string
	Situation string
}

// AIBackend generates a conversational reply. It must honour ctx deadlines.
type AIBackend interface {
	Generate(ctx context.Context, message, sessionID string, c AIContext) (string, error)
}

// Transport delivers a text message to a normalized phone handle.
type Transport interface {
	Send(ctx context.Context, address, text string) error
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Inbound is one user message.
type Inbound struct {
	Message     string
	SessionID   string
	PhoneNumber string
	Platform    domain.Platform
}

// TurnResult is returned for every processed message. Mode-specific fields
// are nil when they do not apply to the path taken.
type TurnResult struct {
	ResponseType      ResponseType    `json:"response_type"`
	Platform          domain.Platform `json:"platform"`
	SessionID         string          `json:"session_id"`
	Response          string          `json:"response"`
	MessageCount      int             `json:"message_count"`
	AIMode            *bool           `json:"ai_mode,omitempty"`
	GeminiAvailable   *bool           `json:"gemini_available,omitempty"`
	FallbackStep      *int            `json:"fallback_step,omitempty"`
	FallbackCompleted *bool           `json:"fallback_completed,omitempty"`
	PhoneSubmitted    *bool           `json:"phone_submitted,omitempty"`

	// Error carries the internal diagnostic for ResponseError. Never serialized.
	Error error `json:"-"`
}

// Deps are the collaborators of an Orchestrator. AI and Transport may be nil,
// in which case every turn falls back and handoff dispatch is reported as
// failed.
type Deps struct {
	Sessions  SessionStore
	Flows     FlowStore
	Leads     LeadStore
	AI        AIBackend
	Transport Transport
	Tracker   *AIHealthTracker
	Validator *Validator
	Log       zerolog.Logger
}

// Options tune an Orchestrator.
type Options struct {
	AITimeout       time.Duration
	FlowCacheTTL    time.Duration
	CountryCode     string
	Region          string
	InternalAddress string
	Location        *time.Location
}

// Orchestrator is the hybrid AI-first / scripted-fallback coordinator.
type Orchestrator struct {
	sessions  SessionStore
	leads     LeadStore
	ai        AIBackend
	transport Transport
	tracker   *AIHealthTracker
	engine    *FlowEngine
	phones    PhoneNormalizer
	log       zerolog.Logger

	aiTimeout       time.Duration
	internalAddress string
	loc             *time.Location
	now             func() time.Time
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(d Deps, o Options) *Orchestrator {
	if d.Tracker == nil {
		d.Tracker = NewAIHealthTracker(0)
	}
	if o.AITimeout <= 0 {
		o.AITimeout = 15 * time.Second
	}
	if o.Location == nil {
		o.Location = saoPaulo()
	}
	return &Orchestrator{
		sessions:        d.Sessions,
		leads:           d.Leads,
		ai:              d.AI,
		transport:       d.Transport,
		tracker:         d.Tracker,
		engine:          NewFlowEngine(d.Flows, d.Validator, o.FlowCacheTTL, d.Log),
		phones:          NewPhoneNormalizer(o.CountryCode, o.Region),
		log:             d.Log,
		aiTimeout:       o.AITimeout,
		internalAddress: o.InternalAddress,
		loc:             o.Location,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Engine exposes the fallback flow engine.
func (o *Orchestrator) Engine() *FlowEngine { return o.engine }

// Tracker exposes the process-wide AI health tracker.
func (o *Orchestrator) Tracker() *AIHealthTracker { return o.tracker }

// ProcessMessage runs one turn: load or create the session, route phone
// numbers straight to handoff once the flow is complete, otherwise try the AI
// backend and fall back to the scripted flow. The session is persisted once
// at the end of the turn. Unexpected faults produce a ResponseError result
// and leave the stored session untouched.
func (o *Orchestrator) ProcessMessage(ctx context.Context, in Inbound) (res TurnResult) {
	platform := in.Platform
	if platform == "" {
		platform = domain.PlatformWeb
	}
	ctx, span := otel.Tracer("services/Orchestrator").Start(ctx, "ProcessMessage",
		trace.WithAttributes(
			attribute.String("session.id", in.SessionID),
			attribute.String("platform", string(platform)),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			res = o.errorResult(in.SessionID, platform, fmt.Errorf("panic: %v", r))
		}
		if strings.TrimSpace(res.Response) == "" {
			res.Response = GreetingReply
		}
		if res.Error != nil {
			span.RecordError(res.Error)
			span.SetStatus(codes.Error, "turn failed")
		}
		span.SetAttributes(attribute.String("response_type", string(res.ResponseType)))
		turnsTotal.WithLabelValues(string(res.ResponseType)).Inc()
	}()

	if strings.TrimSpace(in.SessionID) == "" {
		return o.errorResult(in.SessionID, platform, ErrSessionIDRequired)
	}

	s, err := o.loadOrCreate(ctx, in.SessionID, platform, in.PhoneNumber)
	if err != nil {
		return o.errorResult(in.SessionID, platform, err)
	}

	if s.FallbackCompleted && !s.PhoneSubmitted && LooksLikePhone(in.Message) {
		reply := o.HandlePhoneCollection(ctx, in.Message, s)
		o.finishTurn(ctx, s, in.Message, reply)
		return TurnResult{
			ResponseType:   ResponsePhoneCollected,
			Platform:       platform,
			SessionID:      s.ID,
			Response:       reply,
			MessageCount:   s.MessageCount,
			PhoneSubmitted: boolPtr(s.PhoneSubmitted),
		}
	}

	reply, err := o.attemptAI(ctx, s, in.Message)
	if err == nil {
		o.finishTurn(ctx, s, in.Message, reply)
		return TurnResult{
			ResponseType:    ResponseAI,
			Platform:        platform,
			SessionID:       s.ID,
			Response:        reply,
			MessageCount:    s.MessageCount,
			AIMode:          boolPtr(true),
			GeminiAvailable: boolPtr(true),
		}
	}

	reply = o.engine.Respond(ctx, s, in.Message)
	o.finishTurn(ctx, s, in.Message, reply)
	res = TurnResult{
		ResponseType:      ResponseFallback,
		Platform:          platform,
		SessionID:         s.ID,
		Response:          reply,
		MessageCount:      s.MessageCount,
		AIMode:            boolPtr(false),
		GeminiAvailable:   boolPtr(false),
		FallbackCompleted: boolPtr(s.FallbackCompleted),
	}
	if s.FallbackStep != nil {
		step := *s.FallbackStep
		res.FallbackStep = &step
	}
	return res
}

func (o *Orchestrator) loadOrCreate(ctx context.Context, id string, p domain.Platform, phone string) (*domain.Session, error) {
	s, err := o.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s != nil {
		if s.LeadData == nil {
			s.LeadData = domain.LeadData{}
		}
		return s, nil
	}
	s = domain.NewSession(id, p, o.now())
	s.PhoneNumber = onlyDigits(phone)
	o.log.Info().Str("session_id", id).Str("platform", string(p)).Msg("session created")
	return s, nil
}

// finishTurn records the exchange, bumps the counter and persists. A failed
// save is logged; the reply is still returned to the user.
func (o *Orchestrator) finishTurn(ctx context.Context, s *domain.Session, message, reply string) {
	s.LastMessage = message
	s.LastResponse = reply
	s.MessageCount++
	if err := o.sessions.SaveSession(ctx, s); err != nil {
		o.log.Error().Err(err).Str("session_id", s.ID).Msg("save session failed")
	}
}

// attemptAI calls the AI backend under a timeout and updates health state.
// A nil error means reply is usable.
func (o *Orchestrator) attemptAI(ctx context.Context, s *domain.Session, message string) (string, error) {
	if o.ai == nil {
		return "", ErrAIUnavailable
	}
	if !o.tracker.ShouldAttempt() {
		o.mirrorHealth(s, false, false)
		return "", ErrAIUnavailable
	}

	actx, cancel := context.WithTimeout(ctx, o.aiTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	aic := o.aiContext(s)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("ai backend panic: %v", r)}
			}
		}()
		text, err := o.ai.Generate(actx, message, s.ID, aic)
		ch <- result{text, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-actx.Done():
		r = result{err: actx.Err()}
	}

	log := o.log.With().Str("session_id", s.ID).Logger()
	if r.err != nil {
		if ctx.Err() != nil {
			// Caller went away; says nothing about the backend.
			return "", r.err
		}
		if errors.Is(actx.Err(), context.DeadlineExceeded) && !errors.Is(r.err, context.DeadlineExceeded) {
			r.err = fmt.Errorf("%w: %v", context.DeadlineExceeded, r.err)
		}
		o.recordAIFailure(s, o.tracker.ClassifyFailure(r.err), r.err)
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, r.err)
	}

	text := strings.TrimSpace(r.text)
	if text == "" || o.tracker.LooksLikeQuota(text) {
		kind := FailureOther
		if text != "" {
			kind = FailureQuota
		}
		o.recordAIFailure(s, kind, ErrInvalidAIResponse)
		return "", ErrInvalidAIResponse
	}

	o.tracker.RecordSuccess()
	if !s.GeminiAvailable {
		log.Info().Msg("ai backend restored")
	}
	o.mirrorHealth(s, true, false)
	return text, nil
}

func (o *Orchestrator) recordAIFailure(s *domain.Session, kind FailureKind, err error) {
	o.tracker.RecordFailure(kind)
	o.mirrorHealth(s, false, true)
	aiFailures.WithLabelValues(string(kind)).Inc()
	o.log.Warn().Err(err).Str("session_id", s.ID).Str("failure_kind", string(kind)).Msg("ai backend marked unavailable")
}

// mirrorHealth copies the tracker's verdict into the session. The check
// timestamp moves on transitions, or always when stamp is set.
func (o *Orchestrator) mirrorHealth(s *domain.Session, available, stamp bool) {
	if s.GeminiAvailable == available && !stamp {
		return
	}
	now := o.now()
	s.GeminiAvailable = available
	s.LastGeminiCheck = &now
}

func (o *Orchestrator) aiContext(s *domain.Session) AIContext {
	return AIContext{
		Platform:  string(s.Platform),
		Name:      leadField(s.LeadData, StepKey(domain.StepName), placeholderName),
		Area:      leadField(s.LeadData, StepKey(domain.StepArea), placeholderArea),
		Situation: leadField(s.LeadData, StepKey(domain.StepSituation), placeholderSituation),
	}
}

func (o *Orchestrator) errorResult(sessionID string, p domain.Platform, err error) TurnResult {
	o.log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
	return TurnResult{
		ResponseType: ResponseError,
		Platform:     p,
		SessionID:    sessionID,
		Response:     ErrorReply,
		Error:        err,
	}
}

func leadField(d domain.LeadData, key, fallback string) string {
	if v := strings.TrimSpace(d[key]); v != "" {
		return v
	}
	return fallback
}

func boolPtr(b bool) *bool { return &b }

func saoPaulo() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}
