package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

// PhoneRequestPrompt is emitted once the last scripted step was answered.
const PhoneRequestPrompt = "Obrigado pelas informações! Para finalizar, preciso do seu número de WhatsApp com DDD (exemplo: 11999999999):"

// FlowStore serves the scripted questionnaire.
type FlowStore interface {
	GetFlow(ctx context.Context) (domain.Flow, error)
}

// StepKey is the lead_data key under which the answer to stepID is stored.
func StepKey(stepID int) string { return fmt.Sprintf("step_%d", stepID) }

// FlowEngine drives the deterministic fallback questionnaire. It mutates the
// session it is handed but never persists it; the caller owns the write.
type FlowEngine struct {
	Store     FlowStore
	Validator *Validator
	CacheTTL  time.Duration
	Log       zerolog.Logger

	mu       sync.RWMutex
	cached   *domain.Flow
	cachedAt time.Time
	loads    singleflight.Group
	now      func() time.Time
}

// NewFlowEngine returns an engine that caches the flow for ttl.
func NewFlowEngine(store FlowStore, v *Validator, ttl time.Duration, log zerolog.Logger) *FlowEngine {
	if v == nil {
		v = DefaultValidator()
	}
	return &FlowEngine{
		Store:     store,
		Validator: v,
		CacheTTL:  ttl,
		Log:       log,
		now:       time.Now,
	}
}

// Flow returns the current flow with steps sorted by ascending id. Load
// failures and empty flows degrade to domain.DefaultFlow and are not cached.
func (e *FlowEngine) Flow(ctx context.Context) domain.Flow {
	e.mu.RLock()
	if e.cached != nil && e.now().Sub(e.cachedAt) < e.CacheTTL {
		f := *e.cached
		e.mu.RUnlock()
		return f
	}
	e.mu.RUnlock()

	v, err, _ := e.loads.Do("flow", func() (any, error) {
		return e.load(ctx)
	})
	if err != nil {
		e.Log.Warn().Err(err).Msg("flow load failed, using default flow")
		return domain.DefaultFlow()
	}
	return v.(domain.Flow)
}

// Invalidate drops the cached flow so the next turn reloads it.
func (e *FlowEngine) Invalidate() {
	e.mu.Lock()
	e.cached = nil
	e.mu.Unlock()
}

func (e *FlowEngine) load(ctx context.Context) (domain.Flow, error) {
	if e.Store == nil {
		return domain.Flow{}, ErrFlowUnavailable
	}
	f, err := e.Store.GetFlow(ctx)
	if err != nil {
		return domain.Flow{}, fmt.Errorf("%w: %v", ErrFlowUnavailable, err)
	}
	f.Steps = sortSteps(f.Steps)
	if len(f.Steps) == 0 {
		return domain.Flow{}, fmt.Errorf("%w: no steps", ErrFlowUnavailable)
	}
	if f.CompletionMessage == "" {
		f.CompletionMessage = domain.DefaultCompletionMessage
	}

	e.mu.Lock()
	e.cached = &f
	e.cachedAt = e.now()
	e.mu.Unlock()
	e.Log.Info().Int("steps", len(f.Steps)).Msg("flow loaded")
	return f, nil
}

// sortSteps returns a copy ordered by id with duplicate ids dropped.
func sortSteps(in []domain.FlowStep) []domain.FlowStep {
	out := make([]domain.FlowStep, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	uniq := out[:0]
	for i, s := range out {
		if i > 0 && s.ID == out[i-1].ID {
			continue
		}
		uniq = append(uniq, s)
	}
	return uniq
}

// Respond advances the session by one fallback turn and returns the text to
// send back.
//
// On activation (no current step) the session is moved to the lowest step
// and its question is returned; the triggering message is not consumed as an
// answer. Afterwards every message is validated against the current step:
// invalid answers re-prompt without moving, valid ones are stored under
// step_<id> and the next higher id is asked. After the last step the session
// is marked completed and the phone prompt is returned.
func (e *FlowEngine) Respond(ctx context.Context, s *domain.Session, message string) string {
	ctx, span := otel.Tracer("services/FlowEngine").Start(ctx, "Respond",
		trace.WithAttributes(attribute.String("session.id", s.ID)),
	)
	defer span.End()

	flow := e.Flow(ctx)
	steps := flow.Steps
	if s.LeadData == nil {
		s.LeadData = domain.LeadData{}
	}
	log := e.Log.With().Str("session_id", s.ID).Logger()

	if s.FallbackCompleted {
		if s.PhoneSubmitted {
			return flow.CompletionMessage
		}
		return PhoneRequestPrompt
	}

	if s.FallbackStep == nil {
		first := steps[0].ID
		s.FallbackStep = &first
		log.Info().Int("step", first).Msg("fallback flow activated")
		return steps[0].Question
	}

	idx := indexOfStep(steps, *s.FallbackStep)
	if idx < 0 {
		log.Warn().Int("step", *s.FallbackStep).Msg("current step missing from flow, restarting at first step")
		first := steps[0].ID
		s.FallbackStep = &first
		return steps[0].Question
	}
	step := steps[idx]
	span.SetAttributes(attribute.Int("flow.step", step.ID))

	key := StepKey(step.ID)
	if _, answered := s.LeadData[key]; answered {
		log.Debug().Int("step", step.ID).Msg("step already answered, advancing")
	} else {
		answer := e.Validator.Normalize(message, step.ID)
		if !e.Validator.ShouldAdvance(answer, step.ID) {
			log.Debug().Int("step", step.ID).Msg("answer rejected, re-prompting")
			return e.Validator.Hint(step.ID) + "\n\n" + step.Question
		}
		s.LeadData[key] = answer
	}

	if idx+1 < len(steps) {
		next := steps[idx+1]
		s.FallbackStep = &next.ID
		log.Info().Int("step", next.ID).Msg("fallback flow advanced")
		return next.Question
	}

	s.FallbackCompleted = true
	log.Info().Msg("fallback flow completed")
	return PhoneRequestPrompt
}

func indexOfStep(steps []domain.FlowStep, id int) int {
	for i, s := range steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}
