package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModelServer answers every request with the given status and body and
// keeps the last decoded request body.
type fakeModelServer struct {
	*httptest.Server
	calls   atomic.Int32
	path    atomic.Value
	request atomic.Value
}

func newFakeModelServer(t *testing.T, status int, body string) *fakeModelServer {
	t.Helper()
	f := &fakeModelServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.path.Store(r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		if json.Unmarshal(raw, &decoded) == nil {
			f.request.Store(decoded)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeModelServer) lastPath() string {
	path, _ := f.path.Load().(string)
	return path
}

func (f *fakeModelServer) lastRequest() map[string]any {
	req, _ := f.request.Load().(map[string]any)
	return req
}

const (
	openAIReply = `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"llama-test",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hajur, namaste!"}}]}`
	openAINoChoices = `{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"llama-test","choices":[]}`
	openAIRateLimit = `{"error":{"message":"Rate limit reached","type":"rate_limit_error","code":"rate_limit_exceeded"}}`

	geminiReply = `{"candidates":[{"index":0,"finishReason":"STOP",
		"content":{"role":"model","parts":[{"text":"Hajur, namaste!"}]}}]}`
	geminiNoCandidates = `{"candidates":[]}`
	geminiRateLimit    = `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`
)

func openAICandidate(t *testing.T, server *fakeModelServer, model string) *OpenAICandidate {
	t.Helper()
	client, err := NewOpenAIClient("test-key", server.URL+"/v1/")
	require.NoError(t, err)
	return NewOpenAICandidate(client, model, 256)
}

func geminiCandidate(t *testing.T, server *fakeModelServer, model string) *GeminiCandidate {
	t.Helper()
	client, err := NewGeminiClient(context.Background(), "test-key", server.URL+"/")
	require.NoError(t, err)
	return NewGeminiCandidate(client, model, 256)
}

func TestOpenAICandidateGenerate(t *testing.T) {
	server := newFakeModelServer(t, http.StatusOK, openAIReply)
	candidate := openAICandidate(t, server, "llama-test")

	text, err := candidate.Generate(context.Background(), "Say hi")
	require.NoError(t, err)

	assert.Equal(t, "Hajur, namaste!", text)
	assert.True(t, strings.HasSuffix(server.lastPath(), "/chat/completions"), server.lastPath())

	req := server.lastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "llama-test", req["model"])
	messages, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "Say hi", messages[0].(map[string]any)["content"])
}

func TestOpenAICandidateNoChoicesIsEmptyReply(t *testing.T) {
	server := newFakeModelServer(t, http.StatusOK, openAINoChoices)
	inv := NewInvoker([]Candidate{openAICandidate(t, server, "llama-test")}, 5*time.Second, nil, quietLogger())

	_, err := inv.GenerateReply(context.Background(), "Say hi")
	assert.ErrorIs(t, err, ErrAllModelsExhausted)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestOpenAICandidateRateLimitMovesOn(t *testing.T) {
	limited := newFakeModelServer(t, http.StatusTooManyRequests, openAIRateLimit)
	healthy := newFakeModelServer(t, http.StatusOK, openAIReply)
	recorder := &stubRecorder{}

	inv := NewInvoker([]Candidate{
		openAICandidate(t, limited, "llama-busy"),
		openAICandidate(t, healthy, "llama-test"),
	}, 5*time.Second, recorder, quietLogger())

	reply, err := inv.GenerateReply(context.Background(), "Say hi")
	require.NoError(t, err)

	assert.Equal(t, "llama-test", reply.Model)
	assert.Equal(t, "Hajur, namaste!", reply.Text)
	assert.Equal(t, int32(1), limited.calls.Load())
	require.Len(t, recorder.attempts, 2)
	assert.Equal(t, "error", recorder.attempts[0].status)
}

func TestGeminiCandidateGenerate(t *testing.T) {
	server := newFakeModelServer(t, http.StatusOK, geminiReply)
	candidate := geminiCandidate(t, server, "models/gemini-test")
	assert.Equal(t, "gemini-test", candidate.Name())

	text, err := candidate.Generate(context.Background(), "Say hi")
	require.NoError(t, err)

	assert.Equal(t, "Hajur, namaste!", text)
	assert.True(t, strings.HasSuffix(server.lastPath(), "models/gemini-test:generateContent"), server.lastPath())

	req := server.lastRequest()
	require.NotNil(t, req)
	assert.Contains(t, req, "contents")
}

func TestGeminiCandidateNoCandidatesIsEmptyReply(t *testing.T) {
	server := newFakeModelServer(t, http.StatusOK, geminiNoCandidates)
	inv := NewInvoker([]Candidate{geminiCandidate(t, server, "gemini-test")}, 5*time.Second, nil, quietLogger())

	_, err := inv.GenerateReply(context.Background(), "Say hi")
	assert.ErrorIs(t, err, ErrAllModelsExhausted)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestGeminiCandidateRateLimitMovesOn(t *testing.T) {
	limited := newFakeModelServer(t, http.StatusTooManyRequests, geminiRateLimit)
	healthy := newFakeModelServer(t, http.StatusOK, geminiReply)

	inv := NewInvoker([]Candidate{
		geminiCandidate(t, limited, "gemini-busy"),
		geminiCandidate(t, healthy, "gemini-test"),
	}, 5*time.Second, nil, quietLogger())

	reply, err := inv.GenerateReply(context.Background(), "Say hi")
	require.NoError(t, err)

	assert.Equal(t, "gemini-test", reply.Model)
	assert.Equal(t, "Hajur, namaste!", reply.Text)
	assert.GreaterOrEqual(t, limited.calls.Load(), int32(1))
}
