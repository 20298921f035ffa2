package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expensesbot/internal/llm"
)

type staticQuota llm.RateLimitStatus

func (q staticQuota) Status() llm.RateLimitStatus { return llm.RateLimitStatus(q) }

func TestHealth(t *testing.T) {
	s := NewServer(":0", nil, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"status":    "ok",
		"timestamp": "2024-03-01T10:00:00Z",
		"service":   "expensesbot",
	}, body)
}

func TestQuota(t *testing.T) {
	tests := []struct {
		name     string
		quota    QuotaReporter
		wantCode int
	}{
		{
			name:     "reports status",
			quota:    staticQuota{DailyUsed: 3, DailyLimit: 50, ResetsAt: "2024-03-02"},
			wantCode: http.StatusOK,
		},
		{name: "not registered without quota", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewServer(":0", tt.quota, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quota", nil))
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var got llm.RateLimitStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, llm.RateLimitStatus(tt.quota.(staticQuota)), got)
		})
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(ln.Addr().String(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
