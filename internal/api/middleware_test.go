package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	req := require.New(t)
	core, logs := observer.New(zapcore.InfoLevel)
	router := NewAPI(failingService{}, stubHealth{}, zap.New(core)).Router()

	for _, path := range []string{"/health", "/metrics", "/api/messages"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	var lines []string
	for _, entry := range logs.FilterMessageSnippet(" in ").All() {
		lines = append(lines, entry.Message)
	}
	req.Len(lines, 2)
	req.True(strings.HasPrefix(lines[0], "GET /health 200 in "), lines[0])
	req.True(strings.HasPrefix(lines[1], "GET /api/messages 500 in "), lines[1])
	req.True(strings.HasSuffix(lines[1], "ms"))

	req.Equal(1, logs.FilterMessage("request failed").Len())
}
