package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChannelOf(t *testing.T) {
	cases := map[string]string{
		"/api/v1/sessions/abc/messages": channelWeb,
		"/api/v1/leads":                 channelWeb,
		"/api/v1/webhooks/whatsapp":     channelWhatsApp,
		"/api/v1/status":                channelOps,
		"/health":                       channelOps,
		"/metrics":                      channelOps,
	}
	for in, want := range cases {
		if got := channelOf(in); got != want {
			t.Fatalf("channelOf(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestMetrics_CountsByChannelAndRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.POST("/sessions/:id/messages", func(c *gin.Context) {
		c.String(http.StatusOK, "olá")
	})
	r.POST("/webhooks/whatsapp", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	const turnPath = "/sessions/:id/messages"
	baseTurn := testutil.ToFloat64(httpReqs.WithLabelValues(channelWeb, "POST", turnPath, "200"))
	baseHook := testutil.ToFloat64(httpReqs.WithLabelValues(channelWhatsApp, "POST", "/webhooks/whatsapp", "204"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues(channelOps, "GET", "unmatched", "404"))

	for _, tc := range []struct {
		method, url string
		want        int
	}{
		{http.MethodPost, "/sessions/s-1/messages", http.StatusOK},
		{http.MethodPost, "/sessions/s-2/messages", http.StatusOK},
		{http.MethodPost, "/webhooks/whatsapp", http.StatusNoContent},
		{http.MethodGet, "/nope", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.url, nil))
		if w.Code != tc.want {
			t.Fatalf("%s %s -> %d; want %d", tc.method, tc.url, w.Code, tc.want)
		}
	}

	// Both session ids collapse onto the route template.
	if got := testutil.ToFloat64(httpReqs.WithLabelValues(channelWeb, "POST", turnPath, "200")); got != baseTurn+2 {
		t.Fatalf("turn counter = %v; want %v", got, baseTurn+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues(channelWhatsApp, "POST", "/webhooks/whatsapp", "204")); got != baseHook+1 {
		t.Fatalf("webhook counter = %v; want %v", got, baseHook+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues(channelOps, "GET", "unmatched", "404")); got != base404+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, base404+1)
	}

	for _, ch := range []string{channelWeb, channelWhatsApp, channelOps} {
		if v := testutil.ToFloat64(httpInflight.WithLabelValues(ch)); v != 0 {
			t.Fatalf("inflight[%s] = %v; want 0", ch, v)
		}
	}
}
