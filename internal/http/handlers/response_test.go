package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-intake-bot/internal/services"
)

func Test_fail_500_LogsSessionAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/sessions/:id", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, "store down")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/web_1", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeLookupFailed || resp.Message != "store down" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	logs := buf.String()
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"session_id":"web_1"`) {
		t.Fatalf("expected error log with session id, got: %s", logs)
	}
}

func Test_Fail_4xx_NotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-404")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/sessions/:id", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/web_2", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json 404: %v", err)
	}
	if er.RequestID != "rid-404" || er.Code != ErrCodeNotFound {
		t.Fatalf("unexpected 404 body: %+v", er)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx should not be logged: %s", buf.String())
	}
}

func TestTurnStatus(t *testing.T) {
	cases := map[services.ResponseType]int{
		services.ResponseAI:             http.StatusOK,
		services.ResponseFallback:       http.StatusOK,
		services.ResponsePhoneCollected: http.StatusOK,
		services.ResponseError:          http.StatusInternalServerError,
	}
	for rt, want := range cases {
		if got := turnStatus(services.TurnResult{ResponseType: rt}); got != want {
			t.Fatalf("turnStatus(%s) = %d; want %d", rt, got, want)
		}
	}
}

func TestSubmissionStatus(t *testing.T) {
	cases := map[string]int{
		services.SubmissionSuccess: http.StatusOK,
		services.SubmissionInvalid: http.StatusUnprocessableEntity,
		services.SubmissionError:   http.StatusInternalServerError,
	}
	for st, want := range cases {
		if got := submissionStatus(services.PhoneSubmission{Status: st}); got != want {
			t.Fatalf("submissionStatus(%s) = %d; want %d", st, got, want)
		}
	}
}
