package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Alexsuad/cuentix/pkg/tools/remote"

	"go.uber.org/zap"
)

type stubBackend struct {
	calls    int
	failures int
	failWith error
	reply    string
}

func (s *stubBackend) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.failWith != nil && (s.failures < 0 || s.calls <= s.failures) {
		return "", s.failWith
	}
	return s.reply, nil
}

func fastGenerator(backend Backend) *Generator {
	g := NewGenerator(backend, zap.NewNop())
	g.retry.BaseDelay = 0
	g.retry.MaxDelay = 0
	return g
}

func fullParams() map[string]string {
	return map[string]string{
		"nombre":              "Ana",
		"edad":                "6",
		"personaje_principal": "una zorrita valiente",
		"lugar":               "un bosque encantado",
		"villano":             "un lobo gruñón",
		"objeto_magico":       "una linterna de luciérnagas",
		"tipo_final":          "feliz",
	}
}

func TestGenerateStoryMissingFieldSkipsBackend(t *testing.T) {
	backend := &stubBackend{reply: "un cuento"}
	g := fastGenerator(backend)

	params := fullParams()
	delete(params, "villano")

	text, scenes, err := g.GenerateStory(context.Background(), params)
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if text != "" || scenes != nil {
		t.Fatalf("expected empty result, got %q / %v", text, scenes)
	}
	if backend.calls != 0 {
		t.Fatalf("backend called %d times for invalid params", backend.calls)
	}
}

func TestGenerateStoryHappyPath(t *testing.T) {
	backend := &stubBackend{reply: "[Intro]\nAna vivía en el bosque.\n[Conflicto]\nEl lobo llegó.\n[Resolucion]\nLa linterna brilló.\n[Moraleja]\nLa valentía ilumina."}
	g := fastGenerator(backend)

	text, scenes, err := g.GenerateStory(context.Background(), fullParams())
	if err != nil {
		t.Fatalf("GenerateStory: %v", err)
	}
	if !strings.Contains(text, "Ana vivía") {
		t.Fatalf("unexpected text %q", text)
	}
	if len(scenes) != 4 {
		t.Fatalf("expected 4 scenes, got %d: %v", len(scenes), scenes)
	}
	if backend.calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", backend.calls)
	}
}

func TestGenerateStoryRetriesRateLimitOnly(t *testing.T) {
	backend := &stubBackend{
		failures: 2,
		failWith: &remote.APIError{StatusCode: 429},
		reply:    "Un cuento corto y dulce.",
	}
	g := fastGenerator(backend)

	_, _, err := g.GenerateStory(context.Background(), fullParams())
	if err != nil {
		t.Fatalf("GenerateStory after retries: %v", err)
	}
	if backend.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", backend.calls)
	}
}

func TestGenerateStoryServerErrorNotRetried(t *testing.T) {
	backend := &stubBackend{failures: -1, failWith: &remote.APIError{StatusCode: 500}}
	g := fastGenerator(backend)

	_, _, err := g.GenerateStory(context.Background(), fullParams())
	if err == nil {
		t.Fatal("expected error")
	}
	if backend.calls != 1 {
		t.Fatalf("expected 1 call, got %d", backend.calls)
	}
}

func TestBuildPromptIncludesFieldsAndDefaults(t *testing.T) {
	prompt := BuildPrompt(fullParams())
	for _, want := range []string{"Ana", "6 años", "una zorrita valiente", "un bosque encantado", "un lobo gruñón", "una linterna de luciérnagas", "feliz"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(prompt, "un buen amigo") {
		t.Error("prompt missing default companion")
	}
	if !strings.Contains(prompt, "[Intro]") {
		t.Error("prompt missing structure instruction")
	}
}

func TestCleanTextReplacesPunctuationWords(t *testing.T) {
	got := CleanText("  Dijo comillas hola comillas y un asterisco brillante, con un guión al final. ")
	want := `Dijo " hola " y un * brillante, con un - al final.`
	if got != want {
		t.Fatalf("CleanText = %q, want %q", got, want)
	}
}

func TestSplitScenesTagged(t *testing.T) {
	scenes := SplitScenes("[Intro] uno [Conflicto] dos [Resolucion] tres [Moraleja] cuatro")
	if len(scenes) != 4 {
		t.Fatalf("expected 4 scenes, got %v", scenes)
	}
	if scenes[0] != "uno" || scenes[3] != "cuatro" {
		t.Fatalf("unexpected scenes %v", scenes)
	}
}

func TestSplitScenesParagraphFallback(t *testing.T) {
	scenes := SplitScenes("primer párrafo\n\nsegundo párrafo\n\n\ntercero")
	if len(scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %v", scenes)
	}
}

func TestSplitScenesWholeTextFallback(t *testing.T) {
	scenes := SplitScenes("una sola línea sin estructura")
	if len(scenes) != 1 || scenes[0] != "una sola línea sin estructura" {
		t.Fatalf("unexpected scenes %v", scenes)
	}
}

func TestSplitScenesEmpty(t *testing.T) {
	if scenes := SplitScenes("   \n "); scenes != nil {
		t.Fatalf("expected nil, got %v", scenes)
	}
}
