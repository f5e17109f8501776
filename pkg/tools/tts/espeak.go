package tts

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// EspeakEngine is the local-offline engine. It shells out to espeak-ng,
// which needs no network or API key, so it serves as the reliable fallback
// when a remote provider is down.
type EspeakEngine struct {
	Binary   string
	Language string
	Logger   *zap.Logger
}

func NewEspeakEngine(logger *zap.Logger) *EspeakEngine {
	return &EspeakEngine{
		Binary:   "espeak-ng",
		Language: "es",
		Logger:   logger,
	}
}

func (e *EspeakEngine) Name() string { return "espeak" }

func (e *EspeakEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	if _, err := exec.LookPath(e.Binary); err != nil {
		return fmt.Errorf("local speech engine unavailable: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Binary,
		"-v", e.Language,
		"-s", "150",
		"-w", outputPath,
		text,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("espeak failed: %w, output: %s", err, string(output))
	}

	e.Logger.Info("Local narration generated", zap.String("output", outputPath))
	return nil
}
