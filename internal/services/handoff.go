package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-intake-bot/internal/domain"
	"github.com/tbourn/go-intake-bot/internal/repo"
)

const (
	// InvalidPhoneReply re-prompts for a phone number that was rejected.
	InvalidPhoneReply = "Número inválido. Por favor, digite no formato com DDD (exemplo: 11999999999):"

	dispatchSentNotice   = "✅ Mensagem enviada para seu WhatsApp!"
	dispatchFailedNotice = "⚠️ Houve um problema ao enviar a mensagem do WhatsApp, mas suas informações foram salvas."

	situationBudget = 100
	leadPhoneKey    = "phone"
)

// HandlePhoneCollection captures a phone number on s and performs the
// one-time handoff: save the lead, message the client and the internal team.
// The session itself is not persisted here; the caller saves it once the
// whole turn has succeeded. Rejected numbers return a re-prompt and change
// nothing. Lead and dispatch failures are logged and never fail the call.
func (o *Orchestrator) HandlePhoneCollection(ctx context.Context, raw string, s *domain.Session) string {
	ctx, span := otel.Tracer("services/Orchestrator").Start(ctx, "HandlePhoneCollection",
		trace.WithAttributes(attribute.String("session.id", s.ID)),
	)
	defer span.End()
	log := o.log.With().Str("session_id", s.ID).Logger()

	ph, err := o.phones.Normalize(raw)
	if err != nil {
		var pe *PhoneError
		if errors.As(err, &pe) {
			log.Debug().Str("reason", string(pe.Reason)).Msg("phone rejected")
		}
		return InvalidPhoneReply
	}

	flow := o.engine.Flow(ctx)

	if s.PhoneSubmitted {
		log.Info().Msg("phone already submitted, skipping handoff")
		return confirmationReply(s.PhoneNumber, flow.CompletionMessage, "")
	}

	if s.LeadData == nil {
		s.LeadData = domain.LeadData{}
	}
	s.PhoneSubmitted = true
	s.PhoneNumber = ph.Digits
	s.PhoneFormatted = ph.Handle
	s.LeadData[leadPhoneKey] = ph.Digits
	if !ph.Plausible {
		log.Debug().Msg("phone accepted but not a valid number for region")
	}

	answers := BuildLeadAnswers(flow, s.LeadData, ph.Digits)
	if o.leads != nil {
		if err := o.leads.SaveLead(ctx, s.ID, answers); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				log.Warn().Msg("lead already stored for session")
			} else {
				log.Error().Err(err).Msg("save lead failed")
			}
		} else {
			log.Info().Int("answers", len(answers)).Msg("lead saved")
		}
	}

	welcome, notification := o.handoffMessages(s, ph)
	sent := o.dispatch(ctx, ph.Handle, welcome, notification)
	if sent {
		handoffs.WithLabelValues("sent").Inc()
	} else {
		handoffs.WithLabelValues("failed").Inc()
	}
	span.SetAttributes(attribute.Bool("handoff.dispatched", sent))

	notice := dispatchFailedNotice
	if sent {
		notice = dispatchSentNotice
	}
	return confirmationReply(ph.Digits, flow.CompletionMessage, notice)
}

// BuildLeadAnswers lists stored answers in ascending step order, followed by
// the phone with id len(steps)+1. Steps without an answer are skipped.
func BuildLeadAnswers(flow domain.Flow, data domain.LeadData, phone string) []domain.LeadAnswer {
	steps := sortSteps(flow.Steps)
	out := make([]domain.LeadAnswer, 0, len(steps)+1)
	for _, st := range steps {
		if a := data[StepKey(st.ID)]; a != "" {
			out = append(out, domain.LeadAnswer{ID: st.ID, Answer: a})
		}
	}
	if phone != "" {
		out = append(out, domain.LeadAnswer{ID: len(steps) + 1, Answer: phone})
	}
	return out
}

// dispatch sends both handoff messages concurrently and reports whether both
// were delivered to the transport.
func (o *Orchestrator) dispatch(ctx context.Context, handle, welcome, notification string) bool {
	if o.transport == nil {
		o.log.Warn().Msg("no messaging transport configured, handoff not dispatched")
		return false
	}
	var g errgroup.Group
	g.Go(func() error { return o.send(ctx, "welcome", handle, welcome) })
	if o.internalAddress != "" {
		g.Go(func() error { return o.send(ctx, "internal notification", o.internalAddress, notification) })
	}
	if err := g.Wait(); err != nil {
		o.log.Error().Err(err).Msg("handoff dispatch failed")
		return false
	}
	return true
}

// send delivers one message. It runs on an errgroup goroutine, outside the
// turn's recover, so a transport panic is turned into an error here.
func (o *Orchestrator) send(ctx context.Context, what, address, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: transport panic: %v", what, r)
		}
	}()
	if err := o.transport.Send(ctx, address, text); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (o *Orchestrator) handoffMessages(s *domain.Session, ph Phone) (welcome, notification string) {
	name := leadField(s.LeadData, StepKey(domain.StepName), "Cliente")
	area := leadField(s.LeadData, StepKey(domain.StepArea), "não informada")
	situation := truncateRunes(leadField(s.LeadData, StepKey(domain.StepSituation), "não detalhada"), situationBudget)

	welcome = fmt.Sprintf(`Olá %s! 👋

Recebemos sua solicitação através do nosso site.

📝 Área: %s
📖 Situação: %s

Nossa equipe analisará seu caso e entrará em contato em breve. Podemos continuar nossa conversa aqui no WhatsApp.

Como posso ajudá-lo hoje? 🤝`, name, area, situation)

	notification = fmt.Sprintf(`🔔 *Nova Lead Capturada*

👤 *Cliente:* %s
📱 *Telefone:* %s
🏛️ *Área:* %s
📝 *Situação:* %s
🆔 *Sessão:* %s
💬 *Canal:* %s
⏰ *Data:* %s

_Lead capturada automaticamente pelo assistente de atendimento._`,
		name, ph.Digits, area, situation, s.ID, s.Platform,
		o.now().In(o.loc).Format("02/01/2006 às 15:04"))
	return welcome, notification
}

func confirmationReply(digits, completion, notice string) string {
	if completion == "" {
		completion = domain.DefaultCompletionMessage
	}
	parts := []string{fmt.Sprintf("Número confirmado: %s 📱", digits), completion}
	if notice != "" {
		parts = append(parts, notice)
	}
	return strings.Join(parts, "\n\n")
}

// truncateRunes cuts s to max runes and appends "..." when it was longer.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
