// Package ai provides the conversational AI backend used by the intake
// orchestrator, implemented on top of Google Gemini.
//
// Each session keeps a short rolling history so the model can follow the
// conversation across turns. History lives in process memory only.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/tbourn/go-intake-bot/internal/services"
)

// ErrEmptyReply is returned when the model produced no text.
var ErrEmptyReply = errors.New("gemini returned no text")

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements services.AIBackend.
type Gemini struct {
	models   contentGenerator
	model    string
	maxTurns int
	log      zerolog.Logger

	mu      sync.Mutex
	history map[string][]*genai.Content
}

// NewGemini creates a Gemini API client. historyTurns bounds the number of
// user/model exchanges remembered per session (0 disables memory).
func NewGemini(ctx context.Context, apiKey, model string, historyTurns int, log zerolog.Logger) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newGemini(client.Models, model, historyTurns, log), nil
}

func newGemini(models contentGenerator, model string, historyTurns int, log zerolog.Logger) *Gemini {
	if historyTurns < 0 {
		historyTurns = 0
	}
	return &Gemini{
		models:   models,
		model:    model,
		maxTurns: historyTurns,
		log:      log,
		history:  make(map[string][]*genai.Content),
	}
}

// Generate answers message within the session's conversation. Errors from
// the API are returned unchanged so callers can classify quota failures.
func (g *Gemini) Generate(ctx context.Context, message, sessionID string, c services.AIContext) (string, error) {
	ctx, span := otel.Tracer("ai/Gemini").Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("ai.model", g.model),
		),
	)
	defer span.End()

	user := &genai.Content{Role: "user", Parts: []*genai.Part{{Text: message}}}
	contents := append(g.historyFor(sessionID), user)

	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt(c)}}},
		Temperature:       genai.Ptr[float32](0.7),
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyReply
	}

	g.remember(sessionID, user, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}})
	return text, nil
}

// ClearSession forgets the conversation history of sessionID.
func (g *Gemini) ClearSession(sessionID string) {
	g.mu.Lock()
	delete(g.history, sessionID)
	g.mu.Unlock()
}

func (g *Gemini) historyFor(sessionID string) []*genai.Content {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := g.history[sessionID]
	out := make([]*genai.Content, len(h), len(h)+1)
	copy(out, h)
	return out
}

func (g *Gemini) remember(sessionID string, turn ...*genai.Content) {
	if g.maxTurns == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	h := append(g.history[sessionID], turn...)
	if max := g.maxTurns * 2; len(h) > max {
		h = h[len(h)-max:]
	}
	g.history[sessionID] = h
}

func systemPrompt(c services.AIContext) string {
	return fmt.Sprintf(`Você é o assistente virtual de um escritório de advocacia no Brasil.
Converse em português, de forma cordial, objetiva e profissional.
Seu objetivo é entender o caso do cliente e coletar: nome completo, área do direito, um breve resumo da situação e se deseja agendar uma consulta.
Ao final, peça o número de WhatsApp com DDD para que a equipe entre em contato.
Nunca ofereça parecer jurídico definitivo nem prometa resultados.

Canal: %s
Nome do cliente: %s
Área do direito: %s
Situação: %s`, c.Platform, c.Name, c.Area, c.Situation)
}
