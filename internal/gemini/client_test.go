package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	c := NewClient("test-key", "test-model")
	c.baseURL = serverURL
	return c
}

func TestGeneratePackingSuggestions(t *testing.T) {
	var gotPath string
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"parts": []map[string]string{{
						"text": `[{"name":"Sunscreen","categoryName":"Toiletries"},{"name":"Towel","categoryName":"Beach"}]`,
					}},
				},
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	suggestions, err := client.GeneratePackingSuggestions(context.Background(), "beach week", []string{"Toiletries", "Beach"})
	require.NoError(t, err)

	assert.Equal(t, "/models/test-model:generateContent", gotPath)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Contains(t, gotBody.Contents[0].Parts[0].Text, "beach week")
	assert.Contains(t, gotBody.Contents[0].Parts[0].Text, "Toiletries, Beach")

	require.Len(t, suggestions, 2)
	assert.Equal(t, Suggestion{Name: "Sunscreen", CategoryName: "Toiletries"}, suggestions[0])
	assert.Equal(t, Suggestion{Name: "Towel", CategoryName: "Beach"}, suggestions[1])
}

func TestGeneratePackingSuggestionsMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "not json at all"}},
				},
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	suggestions, err := client.GeneratePackingSuggestions(context.Background(), "beach", []string{"Other"})
	assert.Error(t, err)
	assert.Nil(t, suggestions)
}

func TestGeneratePackingSuggestionsEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GeneratePackingSuggestions(context.Background(), "beach", []string{"Other"})
	assert.Error(t, err)
}

func TestGeneratePackingSuggestionsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GeneratePackingSuggestions(context.Background(), "beach", []string{"Other"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
