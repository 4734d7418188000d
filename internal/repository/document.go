package repository

import (
	"context"
	"errors"
	"io"

	"kankou/internal/model"
)

// ErrNotFound is returned when the API reports that a document or type does not exist.
var ErrNotFound = errors.New("not found")

// DocumentRepository is the document side of the external document API.
// Implementations live in subpackages (e.g., rest).
type DocumentRepository interface {
	// List returns every document, in the order served by the API.
	List(ctx context.Context) ([]model.Document, error)

	// Search returns the documents matching q. An empty query with no type
	// filter is still sent to the search endpoint.
	Search(ctx context.Context, q SearchQuery) ([]model.Document, error)

	// Create stores a new document. Payload.File is required.
	Create(ctx context.Context, p DocumentPayload) (*model.Document, error)

	// Update modifies an existing document. A nil Payload.File keeps the current file.
	Update(ctx context.Context, id model.ID, p DocumentPayload) (*model.Document, error)

	// Delete removes a document by ID.
	Delete(ctx context.Context, id model.ID) error
}

// TypeRepository is the document-type side of the external document API.
type TypeRepository interface {
	List(ctx context.Context) ([]model.DocumentType, error)

	// Create stores a new type. The returned type has an empty ID when the API
	// response did not carry one.
	Create(ctx context.Context, name string) (*model.DocumentType, error)
}

// SearchQuery is a free-text query with an optional type filter.
type SearchQuery struct {
	Query  string
	TypeID model.ID
}

// Active reports whether q narrows the document list in any way.
func (q SearchQuery) Active() bool {
	return q.Query != "" || q.TypeID != ""
}

// FilePart is the binary part of a document submission.
type FilePart struct {
	Name    string
	Content io.Reader
}

// DocumentPayload is a create or update submission.
type DocumentPayload struct {
	Name    string
	TypeID  model.ID
	Format  model.Format
	Content string
	File    *FilePart

	// WithContent controls whether Content is sent. Updates never send it.
	WithContent bool
}
