package domain

import (
	"fmt"
	"time"
)

// Language is the detected primary language of a document or query
type Language string

const (
	LanguageArabic  Language = "ar"
	LanguageEnglish Language = "en"
	LanguageMixed   Language = "mixed"
	LanguageUnknown Language = "unknown"
)

// ParseLanguage maps user input to a Language, returning LanguageUnknown for anything else
func ParseLanguage(s string) Language {
	switch Language(s) {
	case LanguageArabic, LanguageEnglish, LanguageMixed:
		return Language(s)
	}
	return LanguageUnknown
}

// ParseLanguageHint parses an optional caller-supplied language. Empty input and "unknown"
// both mean no hint; anything unrecognised is a validation error.
func ParseLanguageHint(s string) (Language, error) {
	if s == "" || Language(s) == LanguageUnknown {
		return LanguageUnknown, nil
	}
	if l := ParseLanguage(s); l != LanguageUnknown {
		return l, nil
	}
	return "", NewDomainError(ErrCodeValidation, fmt.Sprintf("invalid language: %s", s))
}

// DocumentFormat identifies the source format of an uploaded document
type DocumentFormat string

const (
	DocumentFormatText     DocumentFormat = "txt"
	DocumentFormatMarkdown DocumentFormat = "md"
	DocumentFormatPDF      DocumentFormat = "pdf"
	DocumentFormatDOCX     DocumentFormat = "docx"
)

// DocumentStatus represents the ingestion status of a document
type DocumentStatus string

const (
	DocumentStatusProcessing      DocumentStatus = "processing"
	DocumentStatusReady           DocumentStatus = "ready"
	DocumentStatusPartiallyFailed DocumentStatus = "partially_failed"
	DocumentStatusFailed          DocumentStatus = "failed"
)

// StructureScore is the structural summary produced by the analyzer
type StructureScore struct {
	HeadingCount       int     `json:"heading_count"`
	ParagraphCount     int     `json:"paragraph_count"`
	LineCount          int     `json:"line_count"`
	HeadingDensity     float64 `json:"heading_density"`
	ParagraphVariance  float64 `json:"paragraph_variance"`
	SectionMarkerCount int     `json:"section_marker_count"`
	Score              float64 `json:"score"`
}

// DocumentStructure is the structural metadata stored with a document
type DocumentStructure struct {
	StructureScore
	HasDiacritics bool `json:"has_diacritics"`
	HasArabic     bool `json:"has_arabic"`
}

// Document represents an ingested source document
type Document struct {
	ID          string
	Filename    string
	Format      DocumentFormat
	Language    Language
	Text        string
	Structure   DocumentStructure
	Status      DocumentStatus
	SourceKey   string // Object-store key of the original upload, empty when not stored
	ContentHash string
	ChunkCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDocument creates a new Document in the processing state
func NewDocument(id, filename string, format DocumentFormat, language Language, text string, createdAt time.Time) *Document {
	return &Document{
		ID:        id,
		Filename:  filename,
		Format:    format,
		Language:  language,
		Text:      text,
		Status:    DocumentStatusProcessing,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if !IsValidDocumentFormat(d.Format) {
		return fmt.Errorf("document Format is invalid: %s", d.Format)
	}

	if !isValidLanguage(d.Language) {
		return fmt.Errorf("document Language is invalid: %s", d.Language)
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

// IsValidDocumentFormat checks if a DocumentFormat is supported
func IsValidDocumentFormat(f DocumentFormat) bool {
	switch f {
	case DocumentFormatText, DocumentFormatMarkdown, DocumentFormatPDF, DocumentFormatDOCX:
		return true
	}
	return false
}

func isValidLanguage(l Language) bool {
	switch l {
	case LanguageArabic, LanguageEnglish, LanguageMixed, LanguageUnknown:
		return true
	}
	return false
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusReady, DocumentStatusPartiallyFailed, DocumentStatusFailed:
		return true
	}
	return false
}

// CorpusStats counts what has been ingested so far
type CorpusStats struct {
	TotalDocuments  int
	ArabicDocuments int
	TotalChunks     int
	EmbeddedChunks  int
}
