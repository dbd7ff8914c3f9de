package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// MultipartBody describes a multipart/form-data request body.
type MultipartBody struct {
	// Fields are plain text form fields.
	Fields map[string]string
	// Files are file fields.
	Files []FileField
}

// FileField is a single file part in a multipart body.
type FileField struct {
	// FieldName is the form field name.
	FieldName string
	// FileName is the reported file name.
	FileName string
	// Reader supplies the file content.
	Reader io.Reader
}

// encode writes the multipart body and returns the encoded bytes and the
// Content-Type header value including the boundary.
func (m *MultipartBody) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range m.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %q: %w", name, err)
		}
	}
	for _, f := range m.Files {
		part, err := w.CreateFormFile(f.FieldName, f.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %q: %w", f.FieldName, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", fmt.Errorf("copy file part %q: %w", f.FieldName, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
