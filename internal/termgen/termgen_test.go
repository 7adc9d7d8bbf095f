// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package termgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

// mockBackend returns canned payloads in sequence.
type mockBackend struct {
	payloads [][]byte
	errs     []error
	calls    int
}

func (m *mockBackend) GenerateTerms(_ context.Context, _ types.ItemDescription) ([]byte, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.payloads) {
		return m.payloads[i], nil
	}
	return nil, errors.New("no more payloads")
}

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = orig })
}

func chairItem() types.ItemDescription {
	return types.ItemDescription{
		Title:      "Stol, Carl Malmsten, björk, 1950-tal",
		Artist:     "Carl Malmsten",
		ObjectType: "stol",
		Technique:  "björk",
		Period:     "1950-tal",
	}
}

func validPayload(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"query": `"Carl Malmsten" stol`,
		"terms": []map[string]any{
			{"text": "Carl Malmsten", "kind": "artist", "priority": 100, "pre_selected": true},
			{"text": "stol", "kind": "object_type", "priority": 80, "pre_selected": true},
			{"text": "björk", "kind": "material", "priority": 60},
		},
		"confidence": 0.85,
	})
	require.NoError(t, err)
	return raw
}

func TestGenerateAIPath(t *testing.T) {
	backend := &mockBackend{payloads: [][]byte{validPayload(t)}}
	gen := NewGenerator(backend, 2, zap.NewNop())

	out, err := gen.Generate(context.Background(), chairItem())
	require.NoError(t, err)
	assert.Equal(t, types.SourceAIGenerated, out.Source)
	assert.Equal(t, `"Carl Malmsten" stol`, out.Query)
	assert.Equal(t, 0.85, out.Confidence)
	require.Len(t, out.Terms, 3)
	assert.Equal(t, types.ProvenanceAIDetected, out.Terms[0].Provenance)
}

func TestGenerateRetriesBackendErrors(t *testing.T) {
	fastBackoff(t)
	backend := &mockBackend{
		errs:     []error{errors.New("overloaded"), nil},
		payloads: [][]byte{nil, validPayload(t)},
	}
	gen := NewGenerator(backend, 2, zap.NewNop())

	out, err := gen.Generate(context.Background(), chairItem())
	require.NoError(t, err)
	assert.Equal(t, types.SourceAIGenerated, out.Source)
	assert.Equal(t, 2, backend.calls)
}

func TestGenerateFallsBackOnPersistentGarbage(t *testing.T) {
	fastBackoff(t)
	garbage := []byte(`{"no": "query here"}`)
	backend := &mockBackend{payloads: [][]byte{garbage, garbage, garbage}}
	gen := NewGenerator(backend, 2, zap.NewNop())

	out, err := gen.Generate(context.Background(), chairItem())
	require.NoError(t, err)
	assert.Equal(t, types.SourceEmergencyFallback, out.Source)
	assert.Equal(t, `"Carl Malmsten" stol`, out.Query)
	assert.Equal(t, 3, backend.calls)
}

func TestGenerateHeuristicWithoutBackend(t *testing.T) {
	gen := NewGenerator(nil, 2, zap.NewNop())

	out, err := gen.Generate(context.Background(), chairItem())
	require.NoError(t, err)
	assert.Equal(t, types.SourceEmergencyFallback, out.Source)
	assert.Equal(t, `"Carl Malmsten" stol`, out.Query)

	require.Len(t, out.Terms, 4)
	assert.Equal(t, types.KindArtist, out.Terms[0].Kind)
	assert.True(t, out.Terms[0].Selected)
	assert.False(t, out.Terms[2].Selected, "material is a candidate, not pre-selected")
	for _, term := range out.Terms {
		assert.Equal(t, types.ProvenanceFallback, term.Provenance)
	}
}

func TestGenerateHeuristicTitleWords(t *testing.T) {
	gen := NewGenerator(nil, 2, zap.NewNop())

	out, err := gen.Generate(context.Background(), types.ItemDescription{
		Title: "Matta, rölakan, 1970-tal",
	})
	require.NoError(t, err)
	assert.Equal(t, "Matta rölakan 1970", out.Query)
}

func TestGenerateEmptyDescription(t *testing.T) {
	gen := NewGenerator(nil, 2, zap.NewNop())
	_, err := gen.Generate(context.Background(), types.ItemDescription{})
	require.Error(t, err)
}

func TestGenerateHonorsContextCancellation(t *testing.T) {
	fastBackoff(t)
	backend := &mockBackend{errs: []error{errors.New("boom"), errors.New("boom")}}
	gen := NewGenerator(backend, 2, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, chairItem())
	require.ErrorIs(t, err, context.Canceled)
}

func TestClaudeBackendRequestAndDecode(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotReq claudeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": `{"query": "stol", "terms": [{"text": "stol"}]}`},
			},
		})
	}))
	defer server.Close()

	orig := claudeAPIURL
	claudeAPIURL = server.URL + "/v1/messages"
	t.Cleanup(func() { claudeAPIURL = orig })

	backend := &ClaudeBackend{APIKey: "test-key", Model: "claude-sonnet-4-5-20250929"}
	raw, err := backend.GenerateTerms(context.Background(), chairItem())
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "claude-sonnet-4-5-20250929", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Contains(t, gotReq.Messages[0].Content, "Carl Malmsten")
	assert.Contains(t, gotReq.Messages[0].Content, "Title: Stol")
	assert.JSONEq(t, `{"query": "stol", "terms": [{"text": "stol"}]}`, string(raw))
}

func TestClaudeBackendErrorStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	orig := claudeAPIURL
	claudeAPIURL = server.URL
	t.Cleanup(func() { claudeAPIURL = orig })

	backend := &ClaudeBackend{APIKey: "k", Model: "m"}
	_, err := backend.GenerateTerms(context.Background(), chairItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClaudeBackendNoTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "tool_use", "text": ""}},
		})
	}))
	defer server.Close()

	orig := claudeAPIURL
	claudeAPIURL = server.URL
	t.Cleanup(func() { claudeAPIURL = orig })

	backend := &ClaudeBackend{APIKey: "k", Model: "m"}
	_, err := backend.GenerateTerms(context.Background(), chairItem())
	require.Error(t, err)
}
