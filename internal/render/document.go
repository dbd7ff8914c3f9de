package render

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/physiolab/soapnote/internal/soap"
)

// Document is the input to a render call. GeneratedAt is supplied by the
// caller so repeated renders of the same record are byte-identical.
type Document struct {
	Record      *soap.Record
	GeneratedAt time.Time
}

// OutputFileName derives the report file name from the patient name and the
// generation timestamp: SOAP_<patient>_<yyyymmdd_hhmmss>.<ext>.
func OutputFileName(doc Document, ext string) string {
	return fmt.Sprintf("SOAP_%s_%s.%s",
		sanitizeName(doc.Record.PatientName),
		doc.GeneratedAt.Format("20060102_150405"),
		ext)
}

// sanitizeName strips everything but letters, digits, hyphens, and
// underscores from a patient name, mapping spaces to underscores.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "report"
	}
	return b.String()
}
