// Package narrative builds the story prompt from the wizard's choices,
// asks the remote language model for the tale, cleans the result and
// splits it into scenes.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Alexsuad/cuentix/pkg/tools/remote"

	"go.uber.org/zap"
)

// ErrMissingField is returned when a required wizard field is absent. No
// remote call is made in that case.
var ErrMissingField = errors.New("narrative: missing required field")

// RequiredFields is the official list of wizard fields a story request
// must carry.
var RequiredFields = []string{
	"nombre",
	"edad",
	"personaje_principal",
	"lugar",
	"villano",
	"objeto_magico",
	"tipo_final",
}

// Backend is the opaque text-generation capability.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator produces the story text and its scene split.
type Generator struct {
	backend Backend
	retry   remote.Policy
	logger  *zap.Logger
}

func NewGenerator(backend Backend, logger *zap.Logger) *Generator {
	return &Generator{
		backend: backend,
		retry: remote.Policy{
			Attempts:  3,
			BaseDelay: time.Second,
			MaxDelay:  10 * time.Second,
		},
		logger: logger,
	}
}

// GenerateStory validates params, prompts the model and returns the full
// cleaned text plus the ordered scene list. On validation failure or a
// non-rate-limit backend error it returns ("", nil, err); the orchestrator
// treats that as pipeline failure, not a degraded continue.
func (g *Generator) GenerateStory(ctx context.Context, params map[string]string) (string, []string, error) {
	for _, field := range RequiredFields {
		if strings.TrimSpace(params[field]) == "" {
			g.logger.Error("Story request missing required field", zap.String("field", field))
			return "", nil, fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}

	prompt := BuildPrompt(params)

	var text string
	err := g.retry.Do(ctx, g.logger, remote.IsRateLimited, func() error {
		completed, callErr := g.backend.Complete(ctx, prompt)
		if callErr != nil {
			return callErr
		}
		text = completed
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("story generation failed: %w", err)
	}

	text = CleanText(text)
	scenes := SplitScenes(text)

	g.logger.Info("Story generated",
		zap.Int("chars", len(text)),
		zap.Int("scenes", len(scenes)))
	return text, scenes, nil
}

// BuildPrompt fills the fixed narrative sentence template with the wizard
// fields. Optional fields get friendly defaults.
func BuildPrompt(params map[string]string) string {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(params[key]); v != "" {
			return v
		}
		return fallback
	}

	return fmt.Sprintf(
		"Crea un cuento para un niño o niña de %s años llamado %s. "+
			"El personaje principal será %s, quien vive en %s. "+
			"Durante la historia encontrará %s, que le ayudará a enfrentarse a %s. "+
			"Le acompañará %s y superará el desafío de %s. "+
			"El final debe ser %s, y el cuento debe tener un mensaje positivo, "+
			"ser divertido, fácil de entender y adecuado para la edad del niño o niña. "+
			"Estructura el cuento con las etiquetas [Intro], [Conflicto], [Resolucion] y [Moraleja].",
		get("edad", "5"),
		get("nombre", "un niño o niña"),
		get("personaje_principal", "un personaje principal"),
		get("lugar", "un lugar mágico"),
		get("objeto_magico", "un objeto mágico"),
		get("villano", "un villano"),
		get("acompanante", "un buen amigo"),
		get("desafio", "una gran aventura"),
		get("tipo_final", "feliz"),
	)
}

// punctuationWords maps punctuation names the model sometimes writes out
// to their symbols, so the narrator does not read "asterisco" aloud.
var punctuationWords = []struct {
	pattern *regexp.Regexp
	symbol  string
}{
	{regexp.MustCompile(`(?i)\bcomillas\b`), `"`},
	{regexp.MustCompile(`(?i)\basterisco\b`), `*`},
	{regexp.MustCompile(`(?i)\bguion\b`), `-`},
	{regexp.MustCompile(`(?i)\bguión\b`), `-`},
}

// CleanText normalizes the model output for narration.
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	for _, pw := range punctuationWords {
		text = pw.pattern.ReplaceAllString(text, pw.symbol)
	}
	return text
}

var sceneTagRe = regexp.MustCompile(`\[(Intro|Conflicto|Resolucion|Moraleja)\]`)

// SplitScenes divides the story into ordered scenes. Three levels: the
// structural tags, then double-newline paragraphs, then the whole text as
// one scene. A non-empty text therefore always yields at least one scene.
func SplitScenes(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if sceneTagRe.MatchString(trimmed) {
		parts := sceneTagRe.Split(trimmed, -1)
		var scenes []string
		for _, part := range parts {
			if s := strings.TrimSpace(part); s != "" {
				scenes = append(scenes, s)
			}
		}
		if len(scenes) > 0 {
			return scenes
		}
	}

	if strings.Contains(trimmed, "\n\n") {
		var scenes []string
		for _, part := range strings.Split(trimmed, "\n\n") {
			if s := strings.TrimSpace(part); s != "" {
				scenes = append(scenes, s)
			}
		}
		if len(scenes) > 0 {
			return scenes
		}
	}

	return []string{trimmed}
}
