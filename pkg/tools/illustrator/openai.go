package illustrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Alexsuad/cuentix/pkg/tools/remote"

	"go.uber.org/zap"
)

// OpenAIBackend calls the OpenAI image endpoint and downloads the
// resulting picture.
type OpenAIBackend struct {
	APIKey     string
	Model      string
	Size       string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewOpenAIBackend(logger *zap.Logger, apiKey string) *OpenAIBackend {
	return &OpenAIBackend{
		APIKey:  apiKey,
		Model:   "dall-e-3",
		Size:    "1024x1024",
		BaseURL: "https://api.openai.com/v1",
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		Logger: logger,
	}
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (b *OpenAIBackend) Generate(ctx context.Context, prompt string) ([]byte, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model":  b.Model,
		"prompt": prompt,
		"n":      1,
		"size":   b.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.BaseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create image request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.APIKey)
	req.Header.Set("Content-Type", "application/json")

	b.Logger.Info("Requesting illustration", zap.Int("prompt_chars", len(prompt)))

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &remote.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return nil, fmt.Errorf("image response contained no image")
	}

	return b.download(ctx, parsed.Data[0].URL)
}

func (b *OpenAIBackend) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &remote.APIError{StatusCode: resp.StatusCode, Body: "image download failed"}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image bytes: %w", err)
	}

	b.Logger.Info("Illustration downloaded", zap.Int("bytes", len(data)))
	return data, nil
}
