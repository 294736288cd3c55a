package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// LoadPDF returns the extracted text of each page in page order. Pages without text are skipped.
func LoadPDF(path string) (docs []string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = domain.NewLoadError(path, fmt.Errorf("parse pdf: %v", r))
		}
	}()

	f, r, err := pdf.Open(filepath.Clean(path))
	if err != nil {
		return nil, domain.NewLoadError(path, err)
	}
	defer func() { _ = f.Close() }()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, domain.NewLoadError(path, fmt.Errorf("page %d: %w", i, err))
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, text)
	}

	return docs, nil
}
