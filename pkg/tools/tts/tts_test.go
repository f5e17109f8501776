package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Alexsuad/cuentix/pkg/tools/remote"

	"go.uber.org/zap"
)

// stubEngine counts invocations and fails a configurable number of times.
type stubEngine struct {
	name     string
	calls    int
	failWith error
	failures int // fail this many calls, then succeed; -1 = always fail
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	s.calls++
	if s.failures == -1 || s.calls <= s.failures {
		return s.failWith
	}
	return os.WriteFile(outputPath, []byte("audio"), 0644)
}

func fastSynthesizer(engine, fallback Engine) *Synthesizer {
	s := NewSynthesizer(engine, fallback, zap.NewNop())
	s.retry.BaseDelay = 0
	s.retry.MaxDelay = 0
	return s
}

func TestSynthesizeEmptyInput(t *testing.T) {
	engine := &stubEngine{name: "openai"}
	s := fastSynthesizer(engine, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := s.Synthesize(context.Background(), text, "out.mp3"); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Synthesize(%q) error = %v, expected ErrEmptyInput", text, err)
		}
	}
	if engine.calls != 0 {
		t.Errorf("engine invoked %d times for blank input, expected 0", engine.calls)
	}
}

func TestSynthesizeHappyPath(t *testing.T) {
	engine := &stubEngine{name: "openai"}
	s := fastSynthesizer(engine, nil)

	out := filepath.Join(t.TempDir(), "audio", "story.mp3")
	path, err := s.Synthesize(context.Background(), "Habia una vez", out)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if path != out {
		t.Errorf("returned path %q, expected %q", path, out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("narration file missing: %v", err)
	}
	if engine.calls != 1 {
		t.Errorf("engine calls = %d, expected 1", engine.calls)
	}
}

func TestRemoteFailureFallsBackToLocal(t *testing.T) {
	// The remote engine times out on every attempt; after three tries the
	// local engine must produce the narration.
	rem := &stubEngine{name: "elevenlabs", failures: -1, failWith: &remote.APIError{StatusCode: 503}}
	local := &stubEngine{name: "espeak"}
	s := fastSynthesizer(rem, local)

	out := filepath.Join(t.TempDir(), "story.mp3")
	path, err := s.Synthesize(context.Background(), "Habia una vez", out)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if path != out {
		t.Errorf("returned path %q", path)
	}

	if rem.calls != 3 {
		t.Errorf("remote engine calls = %d, expected exactly 3", rem.calls)
	}
	if local.calls != 1 {
		t.Errorf("local engine calls = %d, expected 1", local.calls)
	}
}

func TestTransientFailureRecoversWithoutFallback(t *testing.T) {
	rem := &stubEngine{name: "openai", failures: 2, failWith: &remote.APIError{StatusCode: 429}}
	local := &stubEngine{name: "espeak"}
	s := fastSynthesizer(rem, local)

	out := filepath.Join(t.TempDir(), "story.mp3")
	if _, err := s.Synthesize(context.Background(), "texto", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if rem.calls != 3 {
		t.Errorf("remote engine calls = %d, expected 3", rem.calls)
	}
	if local.calls != 0 {
		t.Errorf("fallback invoked although the retry succeeded")
	}
}

func TestNonTransientFailureSkipsRetry(t *testing.T) {
	rem := &stubEngine{name: "openai", failures: -1, failWith: &remote.APIError{StatusCode: 401}}
	local := &stubEngine{name: "espeak"}
	s := fastSynthesizer(rem, local)

	out := filepath.Join(t.TempDir(), "story.mp3")
	if _, err := s.Synthesize(context.Background(), "texto", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	// Auth errors are not retried, but the fallback still applies.
	if rem.calls != 1 {
		t.Errorf("remote engine calls = %d, expected 1 for auth error", rem.calls)
	}
	if local.calls != 1 {
		t.Errorf("local engine calls = %d, expected 1", local.calls)
	}
}

func TestLocalEngineHasNoFallback(t *testing.T) {
	local := &stubEngine{name: "espeak", failures: -1, failWith: errors.New("espeak missing")}
	s := fastSynthesizer(local, nil)

	if _, err := s.Synthesize(context.Background(), "texto", filepath.Join(t.TempDir(), "a.wav")); err == nil {
		t.Error("expected terminal failure when the local engine fails")
	}
}
