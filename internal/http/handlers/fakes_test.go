package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-intake-bot/internal/domain"
	"github.com/tbourn/go-intake-bot/internal/http/middleware"
	"github.com/tbourn/go-intake-bot/internal/services"
)

type fakeIntake struct {
	mu     sync.Mutex
	calls  []services.Inbound
	result func(in services.Inbound) services.TurnResult

	phone    services.PhoneSubmission
	view     services.SessionView
	viewErr  error
	report   services.StatusReport
	gotPhone string
}

func (f *fakeIntake) ProcessMessage(_ context.Context, in services.Inbound) services.TurnResult {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	n := len(f.calls)
	f.mu.Unlock()
	if f.result != nil {
		return f.result(in)
	}
	return services.TurnResult{
		ResponseType: services.ResponseAI,
		Platform:     in.Platform,
		SessionID:    in.SessionID,
		Response:     "reply to " + in.Message,
		MessageCount: n,
	}
}

func (f *fakeIntake) HandlePhoneSubmission(_ context.Context, phone, _ string) services.PhoneSubmission {
	f.gotPhone = phone
	return f.phone
}

func (f *fakeIntake) SessionContext(context.Context, string) (services.SessionView, error) {
	return f.view, f.viewErr
}

func (f *fakeIntake) ServiceStatus(context.Context) services.StatusReport { return f.report }

func (f *fakeIntake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLeads struct {
	items    []domain.Lead
	total    int64
	listErr  error
	statsErr error
	latest   *time.Time

	gotPage, gotSize int
}

func (f *fakeLeads) ListPage(_ context.Context, page, pageSize int) ([]domain.Lead, int64, error) {
	f.gotPage, f.gotSize = page, pageSize
	return f.items, f.total, f.listErr
}

func (f *fakeLeads) Stats(context.Context) (int64, *time.Time, error) {
	return f.total, f.latest, f.statsErr
}

var errNoRecord = errors.New("not found")

type memIdem struct {
	mu   sync.Mutex
	recs map[string]*domain.Idempotency
}

func newMemIdem() *memIdem { return &memIdem{recs: map[string]*domain.Idempotency{}} }

func (m *memIdem) Get(_ context.Context, sessionID, key string, _ time.Time) (*domain.Idempotency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.recs[sessionID+"|"+key]; ok {
		return r, nil
	}
	return nil, errNoRecord
}

func (m *memIdem) Create(_ context.Context, sessionID, key, response string, status int, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[sessionID+"|"+key] = &domain.Idempotency{
		SessionID: sessionID,
		Key:       key,
		Response:  response,
		Status:    status,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *memIdem) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

type fakeTransport struct {
	err  error
	sent []string
}

func (f *fakeTransport) Send(_ context.Context, address, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, address+"|"+text)
	return nil
}

// newEngine mounts the handlers the way the router does, minus middleware
// unrelated to the behavior under test.
func newEngine(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	r.POST("/sessions/:id/messages", h.PostMessage)
	r.POST("/sessions/:id/phone", h.SubmitPhone)
	r.GET("/sessions/:id", h.GetSession)
	r.GET("/leads", h.ListLeads)
	r.GET("/status", h.Status)
	r.POST("/webhooks/whatsapp", h.WhatsAppWebhook)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
