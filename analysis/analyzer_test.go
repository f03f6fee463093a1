package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/chunk"
	"github.com/gaurav-prasanna/muniwatch/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  core.Opinion
	}{
		{
			"plain json",
			`{"pertinent": true, "score": 8, "resume": "Chaufferie bois", "justification": "Projet voté"}`,
			core.Opinion{Pertinent: true, Score: 8, Summary: "Chaufferie bois", Justification: "Projet voté"},
		},
		{
			"prefixed keys in prose",
			"Voici l'analyse :\n```json\n{\"ia_pertinent\": \"true\", \"ia_score\": \"6\", \"ia_resume\": \"Étude\"}\n```",
			core.Opinion{Pertinent: true, Score: 6, Summary: "Étude"},
		},
		{
			"summary key and clamped score",
			`{"pertinent": false, "score": 14, "summary": "hors sujet"} trailing`,
			core.Opinion{Pertinent: false, Score: 10, Summary: "hors sujet"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := parseReply(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *op)
		})
	}

	_, err := parseReply("je ne sais pas")
	assert.True(t, errors.Is(err, ErrBadReply))
	_, err = parseReply(`{"pertinent": tru`)
	assert.True(t, errors.Is(err, ErrBadReply))
}

func TestNew(t *testing.T) {
	a, err := New(Config{Provider: "Groq", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "groq", a.Name())

	a, err = New(Config{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", a.Name())

	a, err = New(Config{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", a.Name())

	_, err = New(Config{Provider: "openai"})
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	_, err = New(Config{Provider: "mistral-cloud", APIKey: "k"})
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestChatCompletions_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.1-8b-instant", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "chaufferie biomasse")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"pertinent\":true,\"score\":9,\"resume\":\"Projet\",\"justification\":\"Délibération\"}"}}]}`))
	}))
	defer srv.Close()

	a := NewChatCompletions(ProviderGroq, Config{APIKey: "secret", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second, Retry: fastRetry()})
	op, err := a.Analyze(context.Background(), "Projet de chaufferie biomasse")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, op.Pertinent)
	assert.Equal(t, 9, op.Score)
	assert.Equal(t, "groq", op.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", op.Model)
}

func TestChatCompletions_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := NewChatCompletions(ProviderOpenAI, Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-x", Retry: fastRetry()})
	_, err := a.Analyze(context.Background(), "texte")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOllama_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral", req.Model)
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: `{"pertinent": false, "score": 2, "resume": "Fête"}`})
	}))
	defer srv.Close()

	op, err := NewOllama(Config{BaseURL: srv.URL, Retry: fastRetry()}).Analyze(context.Background(), "fête du village")
	require.NoError(t, err)
	assert.False(t, op.Pertinent)
	assert.Equal(t, 2, op.Score)
	assert.Equal(t, "ollama", op.Provider)
}

func TestAnthropic_Messages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/messages")
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_1",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": `{"pertinent": true, "score": 7, "resume": "Réseau de chaleur"}`},
			},
			"model":       defaultAnthropicModel,
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	a := NewAnthropic(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 5 * time.Second, Retry: fastRetry()})
	op, err := a.Analyze(context.Background(), "réseau de chaleur")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, op.Pertinent)
	assert.Equal(t, 7, op.Score)
	assert.Equal(t, defaultAnthropicModel, op.Model)
}

type fakeAnalyzer struct {
	texts []string
	score int
	fail  bool
}

func (f *fakeAnalyzer) Name() string { return "fake" }

func (f *fakeAnalyzer) Analyze(_ context.Context, text string) (*core.Opinion, error) {
	f.texts = append(f.texts, text)
	if f.fail {
		return nil, errors.New("boom")
	}
	return &core.Opinion{Provider: "fake", Pertinent: true, Score: f.score}, nil
}

func TestReviewer_OnlyPertinentAndConfirmation(t *testing.T) {
	long := strings.Repeat("chaufferie ", 2000)
	report := &core.SiteReport{Documents: []core.RankedDocument{
		{ExtractedDocument: core.ExtractedDocument{Text: long}, Relevance: core.RelevanceResult{Pertinent: true}},
		{ExtractedDocument: core.ExtractedDocument{Text: "fête"}, Relevance: core.RelevanceResult{Pertinent: false}},
	}}

	fake := &fakeAnalyzer{score: 7}
	NewReviewer(fake, 7, 0).Review(context.Background(), report)

	require.Len(t, fake.texts, 1)
	assert.True(t, strings.HasSuffix(fake.texts[0], chunk.TruncatedMarker))
	assert.LessOrEqual(t, len([]rune(fake.texts[0])), DefaultMaxChars+len([]rune(chunk.TruncatedMarker)))
	require.NotNil(t, report.Documents[0].Analysis)
	assert.True(t, report.Documents[0].Analysis.Confirmed)
	assert.Nil(t, report.Documents[1].Analysis)

	fake = &fakeAnalyzer{score: 6}
	NewReviewer(fake, 7, 0).Review(context.Background(), report)
	assert.False(t, report.Documents[0].Analysis.Confirmed)

	report.Documents[0].Analysis = nil
	NewReviewer(&fakeAnalyzer{fail: true}, 7, 0).Review(context.Background(), report)
	assert.Nil(t, report.Documents[0].Analysis)
}
