// Package loader reads corpus sources from disk into document strings.
package loader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// maxLineBytes bounds a single line of a text source.
const maxLineBytes = 1 << 20

// Load dispatches on the file extension: .pdf yields one document per page,
// anything else one document per non-blank line.
func Load(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return LoadPDF(path)
	}
	return LoadText(path)
}

// LoadText returns the trimmed, non-blank lines of a UTF-8 text file in file order.
func LoadText(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, domain.NewLoadError(path, err)
	}
	defer func() { _ = f.Close() }()

	var docs []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		docs = append(docs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, domain.NewLoadError(path, fmt.Errorf("scan: %w", err))
	}

	return docs, nil
}
