package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kankou/internal/logger"
	"kankou/internal/model"
	"kankou/internal/repository"
	"kankou/internal/validation"
)

// TempIDPrefix marks a type that the API has not confirmed yet.
const TempIDPrefix = "temp-"

// TypeEntry is a document type as shown in the registry. Pending entries were
// inserted optimistically and carry a temporary ID.
type TypeEntry struct {
	model.DocumentType
	Pending bool

	token string
}

// TypeRegistry keeps the list of document types shared by the form, the type
// filter and the type modal.
type TypeRegistry struct {
	repo   repository.TypeRepository
	logger *zap.Logger
	newID  func() string

	mu      sync.Mutex
	entries []TypeEntry
	listSeq sequencer
}

// NewTypeRegistry creates an empty registry backed by repo.
func NewTypeRegistry(repo repository.TypeRepository, l *zap.Logger) *TypeRegistry {
	if l == nil {
		l = zap.NewNop()
	}
	return &TypeRegistry{
		repo:   repo,
		logger: l,
		newID:  func() string { return uuid.NewString() },
	}
}

// Load replaces the confirmed types with the API list. Entries still waiting for
// confirmation are kept after the fetched ones.
func (r *TypeRegistry) Load(ctx context.Context) error {
	r.mu.Lock()
	seq := r.listSeq.next()
	r.mu.Unlock()

	types, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load types: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.listSeq.accept(seq) {
		return nil
	}
	entries := make([]TypeEntry, 0, len(types)+1)
	for _, t := range types {
		entries = append(entries, TypeEntry{DocumentType: t})
	}
	for _, e := range r.entries {
		if e.Pending {
			entries = append(entries, e)
		}
	}
	r.entries = entries
	return nil
}

// Entries returns a copy of the current list, pending entries included.
func (r *TypeRegistry) Entries() []TypeEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TypeEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Resolve returns the confirmed type with the given ID.
func (r *TypeRegistry) Resolve(id model.ID) (model.DocumentType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if !e.Pending && e.ID == id {
			return e.DocumentType, true
		}
	}
	return model.DocumentType{}, false
}

// Add validates name, inserts it immediately under a temporary ID and asks the API
// to create it. The temporary entry is reconciled with the confirmed ID on success
// and rolled back on failure. A *validation.FieldError is returned for rejected
// names.
func (r *TypeRegistry) Add(ctx context.Context, name string) (model.DocumentType, error) {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	existing := make([]model.DocumentType, len(r.entries))
	for i, e := range r.entries {
		existing[i] = e.DocumentType
	}
	if fe := validation.TypeName(name, existing); fe != nil {
		r.mu.Unlock()
		return model.DocumentType{}, fe
	}
	token := r.newID()
	r.entries = append(r.entries, TypeEntry{
		DocumentType: model.DocumentType{ID: model.ID(TempIDPrefix + token), Name: name},
		Pending:      true,
		token:        token,
	})
	r.mu.Unlock()

	created, err := r.repo.Create(ctx, name)

	r.mu.Lock()
	i := r.indexOfToken(token)
	if err != nil {
		if i >= 0 {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
		}
		r.mu.Unlock()
		return model.DocumentType{}, fmt.Errorf("create type %q: %w", name, err)
	}

	if created == nil || created.ID == "" {
		// The API did not say which ID it assigned: drop the guess and refetch.
		if i >= 0 {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
		}
		r.mu.Unlock()
		if err := r.Load(ctx); err != nil {
			logger.FromContext(ctx, r.logger).Warn("refetch types after create", zap.Error(err))
		}
		return model.DocumentType{Name: name}, nil
	}

	confirmed := model.DocumentType{ID: created.ID, Name: created.Name}
	if i >= 0 {
		if r.indexOfID(confirmed.ID) >= 0 {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
		} else {
			r.entries[i] = TypeEntry{DocumentType: confirmed}
		}
	}
	r.mu.Unlock()
	return confirmed, nil
}

// Remove drops a type from the local list only. The document API has no delete
// endpoint for types, so the type comes back on the next Load.
func (r *TypeRegistry) Remove(ctx context.Context, id model.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			logger.FromContext(ctx, r.logger).Warn("document type removed locally only",
				zap.String("type_id", string(id)),
				zap.String("type_name", e.Name),
			)
			return true
		}
	}
	return false
}

func (r *TypeRegistry) indexOfToken(token string) int {
	for i, e := range r.entries {
		if e.Pending && e.token == token {
			return i
		}
	}
	return -1
}

func (r *TypeRegistry) indexOfID(id model.ID) int {
	for i, e := range r.entries {
		if !e.Pending && e.ID == id {
			return i
		}
	}
	return -1
}
