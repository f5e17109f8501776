package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Alexsuad/cuentix/pkg/tools/remote"

	"go.uber.org/zap"
)

// OpenAIEngine calls the OpenAI speech endpoint.
type OpenAIEngine struct {
	APIKey     string
	Voice      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewOpenAIEngine(logger *zap.Logger, apiKey, voice string) *OpenAIEngine {
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAIEngine{
		APIKey:  apiKey,
		Voice:   voice,
		BaseURL: "https://api.openai.com/v1",
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		Logger: logger,
	}
}

func (e *OpenAIEngine) Name() string { return "openai" }

func (e *OpenAIEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	payload, err := json.Marshal(map[string]string{
		"model": "tts-1",
		"input": text,
		"voice": e.Voice,
	})
	if err != nil {
		return fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.BaseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	e.Logger.Info("Sending text to OpenAI TTS", zap.Int("chars", len(text)))

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &remote.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read tts response: %w", err)
	}

	if err := os.WriteFile(outputPath, audio, 0644); err != nil {
		return fmt.Errorf("write narration file: %w", err)
	}

	return nil
}
