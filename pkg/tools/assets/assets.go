// Package assets lays out the per-kind directories where the pipeline
// writes generated files.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
)

// Kind names a subdirectory of the asset root.
type Kind string

const (
	Audio     Kind = "audio"
	Images    Kind = "images"
	Subtitles Kind = "subtitles"
	Videos    Kind = "videos"
	Text      Kind = "text"
)

// Layout resolves asset paths under a single root directory.
type Layout struct {
	root string
}

func NewLayout(root string) *Layout {
	if root == "" {
		root = "assets"
	}
	return &Layout{root: root}
}

// Path returns the full path for filename under the kind's directory,
// creating the directory if needed.
func (l *Layout) Path(kind Kind, filename string) (string, error) {
	dir := filepath.Join(l.root, string(kind))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create asset directory %s: %w", dir, err)
	}
	return filepath.Join(dir, filename), nil
}

// Root returns the asset root directory.
func (l *Layout) Root() string {
	return l.root
}
