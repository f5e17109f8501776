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

// ElevenLabsEngine calls the ElevenLabs text-to-speech endpoint.
type ElevenLabsEngine struct {
	APIKey     string
	VoiceID    string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewElevenLabsEngine(logger *zap.Logger, apiKey, voiceID string) *ElevenLabsEngine {
	if voiceID == "" {
		voiceID = "EXAVITQu4vr4xnSDxMaL"
	}
	return &ElevenLabsEngine{
		APIKey:  apiKey,
		VoiceID: voiceID,
		BaseURL: "https://api.elevenlabs.io/v1",
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		Logger: logger,
	}
}

func (e *ElevenLabsEngine) Name() string { return "elevenlabs" }

func (e *ElevenLabsEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.7,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal tts request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", e.BaseURL, e.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	e.Logger.Info("Sending text to ElevenLabs TTS",
		zap.String("voice_id", e.VoiceID),
		zap.Int("chars", len(text)))

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs tts request: %w", err)
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
