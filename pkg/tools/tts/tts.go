// Package tts turns the full story text into a single narration track,
// delegating to one of several interchangeable speech engines.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Alexsuad/cuentix/pkg/tools/remote"

	"go.uber.org/zap"
)

// ErrEmptyInput is returned when the text is blank after trimming. No
// engine is invoked in that case.
var ErrEmptyInput = errors.New("tts: empty input text")

// Engine is one speech-synthesis backend.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text, outputPath string) error
}

// Synthesizer drives the selected engine with a retry-then-fallback policy:
// transient remote failures are retried with backoff, and when the remote
// engine stays down the local engine takes over for that call.
type Synthesizer struct {
	engine   Engine
	fallback Engine // local engine; nil when engine is already local
	retry    remote.Policy
	logger   *zap.Logger
}

// NewSynthesizer builds a synthesizer around the selected engine. fallback
// may be nil, in which case a failing engine is terminal for the call.
func NewSynthesizer(engine, fallback Engine, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		engine:   engine,
		fallback: fallback,
		retry: remote.Policy{
			Attempts:  3,
			BaseDelay: 2 * time.Second,
			MaxDelay:  10 * time.Second,
		},
		logger: logger,
	}
}

// Synthesize writes the narration for text to outputPath and returns the
// path.
func (s *Synthesizer) Synthesize(ctx context.Context, text, outputPath string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("create audio directory: %w", err)
	}

	err := s.retry.Do(ctx, s.logger, remote.IsTransient, func() error {
		return s.engine.Synthesize(ctx, text, outputPath)
	})
	if err == nil {
		s.logger.Info("Narration synthesized",
			zap.String("engine", s.engine.Name()),
			zap.String("output", outputPath))
		return outputPath, nil
	}

	if s.fallback == nil {
		return "", fmt.Errorf("engine %s failed: %w", s.engine.Name(), err)
	}

	s.logger.Warn("Falling back to local speech engine",
		zap.String("engine", s.engine.Name()),
		zap.String("fallback", s.fallback.Name()),
		zap.Error(err))

	if err := s.fallback.Synthesize(ctx, text, outputPath); err != nil {
		return "", fmt.Errorf("fallback engine %s failed: %w", s.fallback.Name(), err)
	}

	s.logger.Info("Narration synthesized by fallback engine",
		zap.String("engine", s.fallback.Name()),
		zap.String("output", outputPath))
	return outputPath, nil
}
