package model

import "strings"

// Format is the declared format of a document file.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatWord Format = "word"
)

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return f == FormatPDF || f == FormatWord
}

// FormatFromExtension maps a file extension (with or without the leading dot,
// any case) to a document format. ok is false for unknown extensions.
func FormatFromExtension(ext string) (f Format, ok bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return FormatPDF, true
	case "doc", "docx":
		return FormatWord, true
	default:
		return "", false
	}
}

// Document is a named, typed, content-bearing record as served by the document API.
// Field names follow the API wire format.
type Document struct {
	ID         ID        `json:"doc_id"`
	Name       string    `json:"doc_name"`
	TypeID     ID        `json:"doc_type_id"`
	TypeName   string    `json:"doc_type"`
	Content    string    `json:"doc_content"`
	Format     Format    `json:"doc_format"`
	FilePath   string    `json:"doc_file_full_path,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	InsertedAt Timestamp `json:"doc_insert_date"`
	UpdatedAt  Timestamp `json:"doc_updated_date"`
}

// DisplayFileName returns the name of the attached file, derived from the storage
// path when the API does not send one.
func (d Document) DisplayFileName() string {
	if d.FileName != "" {
		return d.FileName
	}
	if i := strings.LastIndexAny(d.FilePath, `/\`); i >= 0 {
		return d.FilePath[i+1:]
	}
	return d.FilePath
}

// DocumentType is a user-defined category label for documents.
type DocumentType struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}
