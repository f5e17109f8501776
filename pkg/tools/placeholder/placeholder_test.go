package placeholder

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestRenderWritesPNG(t *testing.T) {
	r := NewRenderer(zap.NewNop(), "")

	out := filepath.Join(t.TempDir(), "placeholder.png")
	if err := r.Render(out, "Cuentix"); err != nil {
		t.Fatalf("Render: %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("placeholder missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("placeholder file is empty")
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	r := NewRenderer(zap.NewNop(), "")

	out := filepath.Join(t.TempDir(), "nested", "placeholder.png")
	if err := r.Ensure(out, "Cuentix"); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}

	first, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}

	// A second call must leave the existing file untouched.
	if err := r.Ensure(out, "different caption"); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	second, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if first.ModTime() != second.ModTime() || first.Size() != second.Size() {
		t.Error("Ensure rewrote an existing placeholder")
	}
}
