package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-intake-bot/internal/domain"
	"github.com/tbourn/go-intake-bot/internal/repo"
)

// ---- session store ----

type memSessions struct {
	mu      sync.Mutex
	m       map[string]*domain.Session
	getErr  error
	saveErr error
	pingErr error
	saves   int
	panicky bool
}

func newMemSessions() *memSessions { return &memSessions{m: map[string]*domain.Session{}} }

func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	c.LeadData = domain.LeadData{}
	for k, v := range s.LeadData {
		c.LeadData[k] = v
	}
	if s.FallbackStep != nil {
		v := *s.FallbackStep
		c.FallbackStep = &v
	}
	if s.LastGeminiCheck != nil {
		v := *s.LastGeminiCheck
		c.LastGeminiCheck = &v
	}
	return &c
}

func (m *memSessions) GetSession(_ context.Context, id string) (*domain.Session, error) {
	if m.panicky {
		panic("store exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.m[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (m *memSessions) SaveSession(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.m[s.ID] = cloneSession(s)
	return nil
}

func (m *memSessions) Ping(context.Context) error { return m.pingErr }

func (m *memSessions) stored(t *testing.T, id string) *domain.Session {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.m[id]
	if !ok {
		t.Fatalf("session %q not stored", id)
	}
	return cloneSession(s)
}

// ---- flow store ----

type fakeFlows struct {
	mu    sync.Mutex
	flow  domain.Flow
	err   error
	calls int
}

func (f *fakeFlows) GetFlow(context.Context) (domain.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Flow{}, f.err
	}
	return f.flow, nil
}

// ---- lead store ----

type memLeads struct {
	mu      sync.Mutex
	leads   map[string][]domain.LeadAnswer
	err     error
	calls   int
	panicky bool
}

func newMemLeads() *memLeads { return &memLeads{leads: map[string][]domain.LeadAnswer{}} }

func (l *memLeads) SaveLead(_ context.Context, sessionID string, answers []domain.LeadAnswer) error {
	if l.panicky {
		panic("lead store exploded")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return l.err
	}
	if _, ok := l.leads[sessionID]; ok {
		return repo.ErrDuplicate
	}
	l.leads[sessionID] = answers
	return nil
}

// ---- AI backend ----

type fakeAI struct {
	mu    sync.Mutex
	reply string
	err   error
	block bool
	calls int
	seen  []AIContext
}

func (a *fakeAI) Generate(ctx context.Context, _ string, _ string, c AIContext) (string, error) {
	a.mu.Lock()
	a.calls++
	a.seen = append(a.seen, c)
	reply, err, block := a.reply, a.err, a.block
	a.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply, err
}

func (a *fakeAI) set(reply string, err error) {
	a.mu.Lock()
	a.reply, a.err = reply, err
	a.mu.Unlock()
}

func (a *fakeAI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// ---- transport ----

type fakeTransport struct {
	mu       sync.Mutex
	sent     map[string][]string
	failFor  string
	panicFor string
}

func newFakeTransport() *fakeTransport { return &fakeTransport{sent: map[string][]string{}} }

func (f *fakeTransport) Send(_ context.Context, address, text string) error {
	if f.panicFor != "" && f.panicFor == address {
		panic("transport exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor != "" && f.failFor == address {
		return fmt.Errorf("send to %s: %w", address, errors.New("twilio: 503"))
	}
	f.sent[address] = append(f.sent[address], text)
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.sent {
		n += len(v)
	}
	return n
}

// ---- harness ----

const testInternal = "5511918368812"

type harness struct {
	o         *Orchestrator
	sessions  *memSessions
	flows     *fakeFlows
	leads     *memLeads
	ai        *fakeAI
	transport *fakeTransport
	tracker   *AIHealthTracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sessions:  newMemSessions(),
		flows:     &fakeFlows{flow: domain.DefaultFlow()},
		leads:     newMemLeads(),
		ai:        &fakeAI{err: errors.New("dial tcp: connection refused")},
		transport: newFakeTransport(),
		tracker:   NewAIHealthTracker(0),
	}
	h.o = NewOrchestrator(Deps{
		Sessions:  h.sessions,
		Flows:     h.flows,
		Leads:     h.leads,
		AI:        h.ai,
		Transport: h.transport,
		Tracker:   h.tracker,
		Log:       zerolog.Nop(),
	}, Options{
		AITimeout:       time.Second,
		FlowCacheTTL:    time.Minute,
		CountryCode:     "55",
		Region:          "BR",
		InternalAddress: testInternal,
		Location:        time.UTC,
	})
	return h
}

func (h *harness) turn(t *testing.T, sessionID, msg string) TurnResult {
	t.Helper()
	res := h.o.ProcessMessage(context.Background(), Inbound{Message: msg, SessionID: sessionID, Platform: domain.PlatformWeb})
	if res.Response == "" {
		t.Fatalf("empty response for %q", msg)
	}
	return res
}
