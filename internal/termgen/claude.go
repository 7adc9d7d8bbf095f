// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package termgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/template"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

// termPromptTmpl is the prompt sent to the Claude API for one item
// description. It instructs the model to emit a structured term list with
// per-term kinds, priorities, and pre-selection.
var termPromptTmpl = template.Must(template.New("terms").Parse(`You are a search-term generator for an auction marketplace. Given a cataloger's partial item description, produce the terms a buyer would use to find comparable sold lots.

Rules:
- Extract the artist, designer, maker, or brand when one is named. Give it kind "artist" and priority 95-100, pre-selected.
- Extract the object type (what the thing is) with kind "object_type" and priority 75-85, pre-selected.
- Model names and reference numbers get kind "model" or "reference", priority 85-95.
- Material, period, movement, and origin terms get their matching kind with priority 30-70, not pre-selected unless essential.
- Term text must be in the language of the description. Never invent attributes that are not in the description.
- "query" must contain the pre-selected terms in priority order, multi-word terms in double quotes.

Respond with a single JSON object and no other text:
{"query": "...", "terms": [{"text": "...", "kind": "...", "priority": 0, "pre_selected": true}], "confidence": 0.0, "reasoning": "..."}

Item description:
Title: {{.Title}}
{{if .Description}}Description: {{.Description}}
{{end}}{{if .Artist}}Artist: {{.Artist}}
{{end}}{{if .ObjectType}}Object type: {{.ObjectType}}
{{end}}{{if .Period}}Period: {{.Period}}
{{end}}{{if .Technique}}Material/technique: {{.Technique}}
{{end}}`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude API to generate search terms for an item
// description.
type ClaudeBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// GenerateTerms calls the Claude API with the term prompt and returns the
// model's raw JSON payload for parsing by the authority package.
func (c *ClaudeBackend) GenerateTerms(ctx context.Context, item types.ItemDescription) ([]byte, error) {
	prompt, err := renderPrompt(item)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: 2048,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return nil, fmt.Errorf("decoding Claude response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type == "text" {
			return []byte(block.Text), nil
		}
	}

	return nil, fmt.Errorf("no text content in Claude API response")
}

// renderPrompt executes the term prompt template with the item description.
func renderPrompt(item types.ItemDescription) (string, error) {
	var buf bytes.Buffer
	if err := termPromptTmpl.Execute(&buf, item); err != nil {
		return "", err
	}
	return buf.String(), nil
}
