package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelcraft/api/internal/config"
)

// OpenAIClient handles communication with the OpenAI API (chat completions,
// text-to-speech, moderation).
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	chatModel  string
	ttsModel   string
	modModel   string
}

// ChatMessage represents a message in the chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest represents the request body for chat completion
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse represents the response from chat completion
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// SpeechRequest represents the request body for text-to-speech
type SpeechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// ModerationRequest represents the request body for content moderation
type ModerationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// ModerationResponse represents the response from content moderation
type ModerationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// NewOpenAIClient creates a new OpenAI API client
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		chatModel: cfg.ChatModel,
		ttsModel:  cfg.TTSModel,
		modModel:  cfg.ModerationModel,
	}
}

// ChatCompletion sends a chat completion request and returns the first
// choice's content.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	reqBody := ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	respBody, err := c.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Speech synthesizes narration audio and returns the raw MP3 bytes.
func (c *OpenAIClient) Speech(ctx context.Context, voice, input string) ([]byte, error) {
	reqBody := SpeechRequest{
		Model:          c.ttsModel,
		Voice:          voice,
		Input:          input,
		ResponseFormat: "mp3",
	}
	return c.post(ctx, "/audio/speech", reqBody)
}

// Moderate runs the moderation endpoint over the given text and returns the
// flagged verdict along with the highest category score.
func (c *OpenAIClient) Moderate(ctx context.Context, text string) (bool, float64, error) {
	reqBody := ModerationRequest{
		Model: c.modModel,
		Input: text,
	}

	respBody, err := c.post(ctx, "/moderations", reqBody)
	if err != nil {
		return false, 0, err
	}

	var modResp ModerationResponse
	if err := json.Unmarshal(respBody, &modResp); err != nil {
		return false, 0, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(modResp.Results) == 0 {
		return false, 0, fmt.Errorf("no results in response")
	}

	result := modResp.Results[0]
	var maxScore float64
	for _, score := range result.CategoryScores {
		if score > maxScore {
			maxScore = score
		}
	}
	return result.Flagged, maxScore, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}
