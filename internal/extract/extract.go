// Package extract turns uploaded files into raw text ready for normalization.
package extract

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/textnorm"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// Extractor extracts text from txt, md, pdf and docx files.
type Extractor struct{}

// New creates a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the text content of data. Structure that the chunkers rely on is kept:
// markdown and docx headings come out as "#" headings and pdf pages are separated by form feeds.
func (e *Extractor) Extract(ctx context.Context, data []byte, format domain.DocumentFormat) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", domain.NewExtractionError(format, errEmptyFile)
	}

	var (
		text string
		err  error
	)
	switch format {
	case domain.DocumentFormatText:
		text, err = textnorm.Decode(data)
	case domain.DocumentFormatMarkdown:
		var raw string
		raw, err = textnorm.Decode(data)
		if err == nil {
			text, err = markdownText([]byte(raw))
		}
	case domain.DocumentFormatPDF:
		text, err = pdfText(ctx, data)
	case domain.DocumentFormatDOCX:
		text, err = docxText(data)
	default:
		return "", domain.ErrUnsupportedFormat
	}
	if err != nil {
		if _, ok := err.(*domain.DomainError); ok {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", domain.NewExtractionError(format, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", domain.NewExtractionError(format, errNoText)
	}
	return text, nil
}

// DetectFormat resolves the format of an upload from an explicit hint, the file extension,
// or the leading bytes, in that order.
func DetectFormat(filename, hint string, data []byte) (domain.DocumentFormat, error) {
	if hint != "" {
		f := domain.DocumentFormat(strings.ToLower(strings.TrimPrefix(hint, ".")))
		if f == "markdown" {
			f = domain.DocumentFormatMarkdown
		}
		if !domain.IsValidDocumentFormat(f) {
			return "", domain.ErrUnsupportedFormat
		}
		return f, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text":
		return domain.DocumentFormatText, nil
	case ".md", ".markdown":
		return domain.DocumentFormatMarkdown, nil
	case ".pdf":
		return domain.DocumentFormatPDF, nil
	case ".docx":
		return domain.DocumentFormatDOCX, nil
	case "":
		switch {
		case bytes.HasPrefix(data, pdfMagic):
			return domain.DocumentFormatPDF, nil
		case bytes.HasPrefix(data, zipMagic):
			return domain.DocumentFormatDOCX, nil
		}
		return domain.DocumentFormatText, nil
	}
	return "", domain.ErrUnsupportedFormat
}
