// Package placeholder renders the fallback illustration used when the
// remote image provider cannot deliver a picture for a scene.
package placeholder

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
)

const (
	width  = 1024
	height = 1024
)

// Renderer draws placeholder cards.
type Renderer struct {
	fontPath string
	logger   *zap.Logger
}

func NewRenderer(logger *zap.Logger, fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath, logger: logger}
}

// Ensure materializes the placeholder at path if it does not exist yet, so
// the illustrator's degraded-continue path always has an asset to copy.
func (r *Renderer) Ensure(path, caption string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create placeholder directory: %w", err)
	}

	return r.Render(path, caption)
}

// Render draws a soft-colored card with the caption centered, in the same
// spirit as the generated illustrations so a substituted frame is not
// jarring in the final video.
func (r *Renderer) Render(path, caption string) error {
	dc := gg.NewContext(width, height)

	dc.SetColor(color.RGBA{R: 0xF6, G: 0xE7, B: 0xC1, A: 0xFF})
	dc.Clear()

	// A few pastel circles so the card reads as an illustration, not an
	// error screen.
	circles := []struct {
		x, y, radius float64
		fill         color.RGBA
	}{
		{200, 260, 130, color.RGBA{0xFA, 0xC8, 0x98, 0xB0}},
		{780, 300, 170, color.RGBA{0xA8, 0xD8, 0xEA, 0xB0}},
		{520, 700, 220, color.RGBA{0xC3, 0xE5, 0xAE, 0xB0}},
	}
	for _, c := range circles {
		dc.SetColor(c.fill)
		dc.DrawCircle(c.x, c.y, c.radius)
		dc.Fill()
	}

	fontSize := 42.0
	if face := r.loadFace(fontSize); face != nil {
		dc.SetFontFace(face)
	}

	dc.SetRGB(0.25, 0.2, 0.15)
	dc.DrawStringWrapped(caption, width/2, height/2, 0.5, 0.5, width*0.8, 1.5, gg.AlignCenter)

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save placeholder image: %w", err)
	}

	r.logger.Info("Placeholder illustration rendered", zap.String("path", path))
	return nil
}

func (r *Renderer) loadFace(size float64) font.Face {
	if r.fontPath == "" {
		return nil
	}

	data, err := os.ReadFile(r.fontPath)
	if err != nil {
		r.logger.Warn("Placeholder font not readable, using default face",
			zap.String("font", r.fontPath), zap.Error(err))
		return nil
	}

	parsed, err := truetype.Parse(data)
	if err != nil {
		r.logger.Warn("Placeholder font not parseable, using default face",
			zap.String("font", r.fontPath), zap.Error(err))
		return nil
	}

	return truetype.NewFace(parsed, &truetype.Options{Size: size})
}
