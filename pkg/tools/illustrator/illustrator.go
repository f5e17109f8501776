// Package illustrator produces one picture per story scene via a remote
// image-generation provider, degrading to a placeholder when the provider
// cannot deliver.
package illustrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Alexsuad/cuentix/pkg/tools/remote"

	"go.uber.org/zap"
)

// Backend is the opaque image-generation capability: prompt in, image
// bytes out.
type Backend interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Config carries the prompt-shaping and fallback settings.
type Config struct {
	// StylePrefix and StyleSuffix wrap every scene prompt so the whole
	// story keeps one visual style.
	StylePrefix string
	StyleSuffix string
	// MaxPromptLen truncates scene text before it reaches the provider.
	MaxPromptLen int
	// PlaceholderPath is copied to the output when generation fails for
	// good.
	PlaceholderPath string
}

func (c *Config) applyDefaults() {
	if c.StylePrefix == "" {
		c.StylePrefix = "Claymation digital 3D illustration for children: "
	}
	if c.StyleSuffix == "" {
		c.StyleSuffix = ", soft lighting, warm colors, storybook style"
	}
	if c.MaxPromptLen == 0 {
		c.MaxPromptLen = 600
	}
}

// Illustrator generates scene images with retry and placeholder fallback.
type Illustrator struct {
	backend Backend
	config  Config
	retry   remote.Policy
	logger  *zap.Logger
}

func New(backend Backend, config Config, logger *zap.Logger) *Illustrator {
	config.applyDefaults()
	return &Illustrator{
		backend: backend,
		config:  config,
		retry: remote.Policy{
			Attempts:  3,
			BaseDelay: 5 * time.Second,
			MaxDelay:  30 * time.Second,
		},
		logger: logger,
	}
}

// Generate produces the illustration for sceneText at outputPath. Transient
// provider errors are retried with backoff; on exhausted retries or a
// non-retryable rejection the configured placeholder is copied to
// outputPath and returned, so one bad image never sinks the whole story.
// The call fails only when the placeholder itself is unavailable.
func (il *Illustrator) Generate(ctx context.Context, sceneText, outputPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}

	prompt := il.buildPrompt(sceneText)

	var imageData []byte
	err := il.retry.Do(ctx, il.logger, remote.IsTransient, func() error {
		data, genErr := il.backend.Generate(ctx, prompt)
		if genErr != nil {
			return genErr
		}
		imageData = data
		return nil
	})

	if err != nil {
		il.logger.Warn("Image generation failed, substituting placeholder",
			zap.String("output", outputPath),
			zap.Error(err))
		return il.substitutePlaceholder(outputPath)
	}

	if err := os.WriteFile(outputPath, imageData, 0644); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}

	il.logger.Info("Illustration generated", zap.String("output", outputPath))
	return outputPath, nil
}

// buildPrompt truncates the scene text, strips non-ASCII bytes that some
// providers reject, and wraps the result in the fixed style prefix/suffix.
func (il *Illustrator) buildPrompt(sceneText string) string {
	text := strings.TrimSpace(sceneText)
	if len(text) > il.config.MaxPromptLen {
		text = text[:il.config.MaxPromptLen]
	}

	var b strings.Builder
	for _, r := range text {
		if r < 128 {
			b.WriteRune(r)
		}
	}

	return il.config.StylePrefix + strings.TrimSpace(b.String()) + il.config.StyleSuffix
}

func (il *Illustrator) substitutePlaceholder(outputPath string) (string, error) {
	src, err := os.Open(il.config.PlaceholderPath)
	if err != nil {
		return "", fmt.Errorf("placeholder image unavailable: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("write placeholder copy: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy placeholder: %w", err)
	}

	return outputPath, nil
}
