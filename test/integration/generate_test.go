package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chainmap/internal/cache"
	"github.com/agenthands/chainmap/internal/config"
	"github.com/agenthands/chainmap/internal/library"
	"github.com/agenthands/chainmap/internal/model"
	"github.com/agenthands/chainmap/internal/orchestrator"
	"github.com/agenthands/chainmap/internal/pipeline"
	"github.com/agenthands/chainmap/internal/ratelimit"
	"github.com/agenthands/chainmap/internal/resolver"
	"github.com/agenthands/chainmap/internal/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptedLLM answers each stage with a fixed reply, like a well-behaved
// collaborator, and counts total calls.
type scriptedLLM struct {
	calls atomic.Int64
}

func (m *scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	switch {
	case strings.Contains(prompt, "Classify the following subject"):
		return `{"archetype": "linear", "subject": "Wheat Farming", "region": "Global"}`, nil
	case strings.Contains(prompt, "top-level stages"):
		return `{"nodes": [
			{"label": "Input Supply", "category": "extraction", "description": "Seeds and fertilizer"},
			{"label": "Cultivation", "category": "extraction", "description": "Growing the crop"},
			{"label": "Milling", "category": "processing", "description": "Grinding grain"}
		]}`, nil
	case strings.Contains(prompt, "detailing one stage"):
		return `{"children": [{"label": "Sub Activity", "category": "support", "children": []}]}`, nil
	case strings.Contains(prompt, "material flows"):
		return `{"edges": [
			{"source": "input-supply", "target": "cultivation"},
			{"source": "cultivation", "target": "milling"},
			{"source": "milling", "target": "milling"}
		]}`, nil
	}
	return "", nil
}

func newTestServer(t *testing.T, llmClient *scriptedLLM, quota int) *httptest.Server {
	t.Helper()

	libDir := t.TempDir()
	asset := &model.Graph{
		Subject: "Grain Production",
		Nodes: []model.Node{
			{ID: "farming", Label: "Farming", Category: model.CategoryExtraction},
			{ID: "trading", Label: "Trading", Category: model.CategoryDistribution},
		},
		Edges: []model.Edge{{Source: "farming", Target: "trading"}},
	}
	raw, err := json.Marshal(asset)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(libDir, library.Slug("Grain Production")+".json"), raw, 0o644))

	orch := orchestrator.New(
		cache.NewMemory(),
		resolver.New(map[string]string{"grains": "Grain Production"}, 0.93, 0.72),
		library.NewDir(libDir, nil),
		ratelimit.NewSlidingWindow(quota, time.Minute),
		pipeline.New(llmClient, config.PipelineConfig{Concurrency: 2, MaxDepth: 3}, config.DefaultPrompts(), nil),
		nil,
		time.Minute,
	)
	srv := httptest.NewServer(server.New(orch, nil).SetupRouter())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/graphs", "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	return resp
}

func TestPrebuiltEndToEnd(t *testing.T) {
	llmClient := &scriptedLLM{}
	srv := newTestServer(t, llmClient, 10)

	resp := postJSON(t, srv.URL, `{"query": "grains"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out server.GenerateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "prebuilt", out.Source)
	assert.Equal(t, "Grain Production", out.Graph.Subject)
	assert.Equal(t, int64(0), llmClient.calls.Load())

	// Second request is served from the cache.
	resp2 := postJSON(t, srv.URL, `{"query": "grains"}`)
	defer resp2.Body.Close()
	var out2 server.GenerateResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&out2))
	assert.Equal(t, "cache", out2.Source)
}

func TestGenerateEndToEnd(t *testing.T) {
	llmClient := &scriptedLLM{}
	srv := newTestServer(t, llmClient, 10)

	resp := postJSON(t, srv.URL, `{"query": "wheat farming"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out server.GenerateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "generate", out.Source)
	assert.Equal(t, "Wheat Farming", out.Graph.Subject)
	require.Len(t, out.Graph.Nodes, 3)
	assert.Len(t, out.Graph.Nodes[0].Children, 1)
	// The self-loop was filtered out of the crosslink reply.
	assert.Len(t, out.Graph.Edges, 2)
	// classify + structure + 3 expands + crosslink
	assert.Equal(t, int64(6), llmClient.calls.Load())
}

func TestStreamingEndToEnd(t *testing.T) {
	llmClient := &scriptedLLM{}
	srv := newTestServer(t, llmClient, 10)

	resp := postJSON(t, srv.URL, `{"query": "wheat farming", "stream": true}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var steps []string
	var percents []int
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			steps = append(steps, strings.TrimSpace(strings.TrimPrefix(line, "event:")))
		}
		if strings.HasPrefix(line, "data:") {
			var ev struct {
				Percent int `json:"percent"`
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &ev); err == nil {
				percents = append(percents, ev.Percent)
			}
		}
	}
	require.NoError(t, scanner.Err())

	require.NotEmpty(t, steps)
	assert.Equal(t, "done", steps[len(steps)-1])
	assert.Equal(t, "resolve", steps[0])

	last := -1
	for _, p := range percents {
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
	assert.Equal(t, 100, last)
}

func TestRateLimitEndToEnd(t *testing.T) {
	llmClient := &scriptedLLM{}
	srv := newTestServer(t, llmClient, 1)

	resp := postJSON(t, srv.URL, `{"query": "wheat farming"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Quota of one is spent; the next synthesis path is denied before any
	// collaborator call.
	before := llmClient.calls.Load()
	resp2 := postJSON(t, srv.URL, `{"query": "barley farming"}`)
	resp2.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp2.StatusCode)
	assert.Equal(t, before, llmClient.calls.Load())

	// Prebuilt requests stay exempt from the quota.
	resp3 := postJSON(t, srv.URL, `{"query": "grains"}`)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}
