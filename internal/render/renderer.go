package render

import (
	"context"

	apperrors "github.com/physiolab/soapnote/internal/errors"
)

// Format selects the report output format.
type Format string

const (
	// FormatPDF renders through the external engine.
	FormatPDF Format = "pdf"
	// FormatMarkdown renders locally without an engine.
	FormatMarkdown Format = "markdown"
)

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return "pdf"
}

// Renderer produces report bytes from a document.
type Renderer struct {
	engine Engine
	format Format
}

// NewRenderer creates a renderer. The engine may be nil when the format is
// Markdown.
func NewRenderer(engine Engine, format Format) *Renderer {
	if format == "" {
		format = FormatPDF
	}
	return &Renderer{engine: engine, format: format}
}

// Format returns the configured output format.
func (r *Renderer) Format() Format { return r.format }

// Render produces the report bytes for the document.
func (r *Renderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if doc.Record == nil {
		return nil, apperrors.RenderFailed("no record to render")
	}
	switch r.format {
	case FormatMarkdown:
		return []byte(Markdown(doc)), nil
	default:
		html, err := HTML(doc)
		if err != nil {
			return nil, err
		}
		if r.engine == nil {
			return nil, apperrors.RenderFailed("no render engine configured for PDF output")
		}
		return r.engine.ConvertHTML(ctx, html)
	}
}
