// Package gemini calls the Google Generative Language API to produce
// packing suggestions for a free-text trip description.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Suggestion is one proposed item. CategoryName is expected, but not
// guaranteed, to match one of the category names sent with the request.
type Suggestion struct {
	Name         string `json:"name"`
	CategoryName string `json:"categoryName"`
}

// Client is a thin generateContent wrapper. It returns the decoded
// suggestions or the failure reason; collapsing failures to an empty result
// is the caller's decision, not the client's.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{},
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// suggestionSchema constrains the model to a JSON array of
// {name, categoryName} objects.
const suggestionSchema = `{
	"type": "ARRAY",
	"items": {
		"type": "OBJECT",
		"properties": {
			"name": {"type": "STRING"},
			"categoryName": {"type": "STRING"}
		},
		"required": ["name", "categoryName"]
	}
}`

// GeneratePackingSuggestions asks the model for a packing list categorized
// into the given category names.
func (c *Client) GeneratePackingSuggestions(ctx context.Context, tripDescription string, categoryNames []string) ([]Suggestion, error) {
	names := strings.Join(categoryNames, ", ")
	prompt := fmt.Sprintf(
		"Suggest a packing list for a %s holiday. Categorize items ONLY into these categories: %s.",
		tripDescription, names,
	)

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   json.RawMessage(suggestionSchema),
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(decoded.Candidates[0].Content.Parts[0].Text), &suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return suggestions, nil
}
