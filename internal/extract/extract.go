// Package extract turns uploaded files into document sections.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

var textExts = map[string]bool{".txt": true, ".md": true, ".markdown": true, ".text": true}

// Supported reports whether name has an extension Extract can read.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".pdf" || textExts[ext]
}

// File reads and extracts the file at path.
func File(path string) (domain.Document, error) {
	if !Supported(path) {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	return Extract(filepath.Base(path), data)
}

// Extract converts the content of a file called name into a document. Plain
// text and markdown become one section; PDFs become one section per page.
// The document ID is left for the caller to assign.
func Extract(name string, data []byte) (domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	var sections []string
	switch {
	case textExts[ext]:
		sections = []string{normalize(string(data))}
	case ext == ".pdf":
		pages, err := pdfPages(data)
		if err != nil {
			return domain.Document{}, fmt.Errorf("%w: %s: %w", domain.ErrUnsupportedFormat, name, err)
		}
		sections = pages
	default:
		return domain.Document{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext)
	}
	return domain.Document{Source: name, Sections: sections}, nil
}

// Text wraps raw text as a single-section document.
func Text(source, text string) domain.Document {
	return domain.Document{Source: source, Sections: []string{normalize(text)}}
}

func pdfPages(data []byte) (pages []string, err error) {
	// the reader panics on some malformed object graphs
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("read pdf: %v", r)
		}
	}()

	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	fonts := make(map[string]*pdf.Font)
	n := rdr.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := rdr.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, normalize(text))
	}
	return pages, nil
}

func normalize(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}
