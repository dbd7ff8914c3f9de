package render

import (
	"bytes"
	"embed"
	"html/template"

	apperrors "github.com/physiolab/soapnote/internal/errors"
)

//go:embed templates/report.html
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html"))

// HTML fills the report layout with the record's fields. Optional sections
// only appear when the corresponding field is set.
func HTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, doc); err != nil {
		return nil, apperrors.RenderFailed("template fill failed").WithCause(err)
	}
	return buf.Bytes(), nil
}
