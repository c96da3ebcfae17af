package plot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/a-h/templ"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// WriteHTML renders p as SVG and writes a standalone HTML page embedding it.
func WriteHTML(w io.Writer, p *gonumplot.Plot, title string, width, height vg.Length) error {
	svg, err := renderSVG(p, width, height)
	if err != nil {
		return err
	}
	if err := page(title, templ.Raw(svg)).Render(context.Background(), w); err != nil {
		return fmt.Errorf("failed to write html: %w", err)
	}
	return nil
}

// SaveHTML writes the page to path, creating parent directories.
func SaveHTML(path string, p *gonumplot.Plot, title string, width, height vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, p, title, width, height); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// renderSVG returns the chart's <svg> element without the XML prolog.
func renderSVG(p *gonumplot.Plot, width, height vg.Length) (string, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	wt, err := p.WriterTo(width, height, "svg")
	if err != nil {
		return "", fmt.Errorf("failed to create svg canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to render svg: %w", err)
	}

	out := buf.Bytes()
	if i := bytes.Index(out, []byte("<svg")); i > 0 {
		out = out[i:]
	}
	return string(out), nil
}
