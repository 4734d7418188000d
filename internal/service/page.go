package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"kankou/internal/logger"
	"kankou/internal/model"
	"kankou/internal/repository"
	"kankou/internal/validation"
)

// Modal identifies the dialog currently shown over the page.
type Modal int

const (
	ModalNone Modal = iota
	ModalDocument
	ModalTypes
	ModalDelete
)

// PageSnapshot is a read-only copy of the page state for rendering.
type PageSnapshot struct {
	Documents    []model.Document
	Results      []model.Document
	Query        repository.SearchQuery
	Types        []TypeEntry
	Modal        Modal
	Form         FormSnapshot
	DeleteTarget *model.Document
	TypeInput    string
	TypeError    string
	Loaded       bool
}

// Page owns the state of one browser page: the canonical document list, the
// displayed search results, the type registry, the document form and the open
// modal. It is safe for concurrent use; locks are never held across API calls.
type Page struct {
	docs   repository.DocumentRepository
	types  *TypeRegistry
	form   *DocumentForm
	logger *zap.Logger

	mu           sync.Mutex
	typesLoaded  bool
	docsLoaded   bool
	documents    []model.Document
	results      []model.Document
	query        repository.SearchQuery
	lastSearch   *repository.SearchQuery
	documentsSeq sequencer
	resultsSeq   sequencer
	modal        Modal
	deleteTarget *model.Document
	typeInput    string
	typeErr      string
	alert        string
	notice       string
}

// NewPage creates an unloaded page.
func NewPage(docs repository.DocumentRepository, types repository.TypeRepository, l *zap.Logger) *Page {
	if l == nil {
		l = zap.NewNop()
	}
	registry := NewTypeRegistry(types, l)
	return &Page{
		docs:   docs,
		types:  registry,
		form:   NewDocumentForm(docs, registry, l),
		logger: l,
	}
}

// Form returns the document form for input handling.
func (p *Page) Form() *DocumentForm { return p.form }

// Types returns the type registry.
func (p *Page) Types() *TypeRegistry { return p.types }

// Load fetches the types and the full document list. The list seeds both the
// canonical collection and the displayed results.
func (p *Page) Load(ctx context.Context) error {
	return p.load(ctx, true, true)
}

// EnsureLoaded fetches whatever part of the page has not loaded successfully
// yet, so a page whose first load failed recovers on a later request.
func (p *Page) EnsureLoaded(ctx context.Context) error {
	p.mu.Lock()
	needTypes, needDocs := !p.typesLoaded, !p.docsLoaded
	p.mu.Unlock()
	if !needTypes && !needDocs {
		return nil
	}
	return p.load(ctx, needTypes, needDocs)
}

func (p *Page) load(ctx context.Context, types, docs bool) error {
	var errs []error
	typesOK, docsOK := false, false
	if types {
		if err := p.types.Load(ctx); err != nil {
			p.logError(ctx, "load types", err)
			errs = append(errs, err)
		} else {
			typesOK = true
		}
	}
	if docs {
		if err := p.fetchDocuments(ctx); err != nil {
			errs = append(errs, err)
		} else {
			docsOK = true
		}
	}

	p.mu.Lock()
	p.typesLoaded = p.typesLoaded || typesOK
	p.docsLoaded = p.docsLoaded || docsOK
	if len(errs) > 0 {
		p.alert = AlertGeneric
	}
	p.mu.Unlock()
	return errors.Join(errs...)
}

// Search replaces the displayed results with the API response for q. The
// canonical collection is not touched. Results are shown in API order.
func (p *Page) Search(ctx context.Context, q repository.SearchQuery) error {
	p.mu.Lock()
	p.query = q
	last := q
	p.lastSearch = &last
	seq := p.resultsSeq.next()
	p.mu.Unlock()

	docs, err := p.docs.Search(ctx, q)
	if err != nil {
		p.logError(ctx, "search documents", err)
		p.setAlert(AlertGeneric)
		return fmt.Errorf("search: %w", err)
	}

	p.mu.Lock()
	if p.resultsSeq.accept(seq) {
		p.results = docs
	}
	p.mu.Unlock()
	return nil
}

// Refresh brings the page up to date after a mutation. An active search (query
// or type filter) is re-issued; otherwise the full list is fetched again.
func (p *Page) Refresh(ctx context.Context) error {
	p.mu.Lock()
	var q *repository.SearchQuery
	if p.lastSearch != nil && p.lastSearch.Active() {
		last := *p.lastSearch
		q = &last
	}
	p.mu.Unlock()

	if q != nil {
		return p.Search(ctx, *q)
	}
	return p.fetchDocuments(ctx)
}

// OpenCreate opens an empty document form.
func (p *Page) OpenCreate() {
	p.form.Open(nil, p.onFormResult)
	p.mu.Lock()
	p.modal = ModalDocument
	p.deleteTarget = nil
	p.mu.Unlock()
}

// OpenEdit opens the document form prefilled with the document id.
func (p *Page) OpenEdit(id model.ID) error {
	doc, ok := p.lookup(id)
	if !ok {
		return ErrUnknownDocument
	}
	p.form.Open(&doc, p.onFormResult)
	p.mu.Lock()
	p.modal = ModalDocument
	p.deleteTarget = nil
	p.mu.Unlock()
	return nil
}

// SubmitForm submits the open document form. On success the modal closes and
// the page is refreshed before SubmitForm returns.
func (p *Page) SubmitForm(ctx context.Context) (*model.Document, error) {
	return p.form.Submit(ctx)
}

func (p *Page) onFormResult(ctx context.Context, res FormResult) {
	p.mu.Lock()
	if p.modal == ModalDocument {
		p.modal = ModalNone
	}
	if res.Editing {
		p.notice = NoticeUpdated
	}
	p.mu.Unlock()

	if err := p.Refresh(ctx); err != nil {
		p.logError(ctx, "refresh after save", err)
	}
}

// AskDelete shows the delete confirmation for id.
func (p *Page) AskDelete(id model.ID) error {
	doc, ok := p.lookup(id)
	if !ok {
		return ErrUnknownDocument
	}
	p.form.Close()
	p.mu.Lock()
	p.modal = ModalDelete
	p.deleteTarget = &doc
	p.mu.Unlock()
	return nil
}

// DeleteDocument deletes id once the user confirmed, then refreshes the page.
// No row is removed locally before the refresh.
func (p *Page) DeleteDocument(ctx context.Context, id model.ID, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	p.mu.Lock()
	if p.modal == ModalDelete {
		p.modal = ModalNone
		p.deleteTarget = nil
	}
	p.mu.Unlock()

	if err := p.docs.Delete(ctx, id); err != nil {
		p.logError(ctx, "delete document", err)
		p.setAlert(AlertGeneric)
		return fmt.Errorf("delete document: %w", err)
	}

	if err := p.Refresh(ctx); err != nil {
		p.logError(ctx, "refresh after delete", err)
	}
	return nil
}

// OpenTypes shows the type registry modal.
func (p *Page) OpenTypes() {
	p.form.Close()
	p.mu.Lock()
	p.modal = ModalTypes
	p.deleteTarget = nil
	p.typeInput = ""
	p.typeErr = ""
	p.mu.Unlock()
}

// AddType adds a document type. Rejected names are kept in the modal with their
// message; an API failure rolls back the optimistic entry and raises an alert.
func (p *Page) AddType(ctx context.Context, name string) error {
	_, err := p.types.Add(ctx, name)

	p.mu.Lock()
	defer p.mu.Unlock()

	var fe *validation.FieldError
	switch {
	case err == nil:
		p.typeInput = ""
		p.typeErr = ""
		return nil
	case errors.As(err, &fe):
		p.typeInput = name
		p.typeErr = fe.Message
		return err
	default:
		p.typeInput = name
		p.typeErr = ""
		p.alert = AlertGeneric
		logger.FromContext(ctx, p.logger).Error("add document type", zap.Error(err))
		return err
	}
}

// RemoveType removes a type from the local registry.
func (p *Page) RemoveType(ctx context.Context, id model.ID) bool {
	return p.types.Remove(ctx, id)
}

// CloseModal closes any open dialog and drops the form inputs.
func (p *Page) CloseModal() {
	p.form.Close()
	p.mu.Lock()
	p.modal = ModalNone
	p.deleteTarget = nil
	p.typeInput = ""
	p.typeErr = ""
	p.mu.Unlock()
}

// Snapshot returns a copy of the page for rendering.
func (p *Page) Snapshot() PageSnapshot {
	form := p.form.Snapshot()
	types := p.types.Entries()

	p.mu.Lock()
	defer p.mu.Unlock()

	modal := p.modal
	if modal == ModalDocument && form.State == FormClosed {
		modal = ModalNone
	}
	s := PageSnapshot{
		Documents: append([]model.Document(nil), p.documents...),
		Results:   append([]model.Document(nil), p.results...),
		Query:     p.query,
		Types:     types,
		Modal:     modal,
		Form:      form,
		TypeInput: p.typeInput,
		TypeError: p.typeErr,
		Loaded:    p.typesLoaded && p.docsLoaded,
	}
	if p.deleteTarget != nil {
		d := *p.deleteTarget
		s.DeleteTarget = &d
	}
	return s
}

// TakeFlash returns the pending alert and notice and clears them.
func (p *Page) TakeFlash() (alert, notice string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	alert, notice = p.alert, p.notice
	p.alert, p.notice = "", ""
	return alert, notice
}

func (p *Page) fetchDocuments(ctx context.Context) error {
	p.mu.Lock()
	dseq := p.documentsSeq.next()
	rseq := p.resultsSeq.next()
	p.mu.Unlock()

	docs, err := p.docs.List(ctx)
	if err != nil {
		p.logError(ctx, "list documents", err)
		p.setAlert(AlertGeneric)
		return fmt.Errorf("fetch documents: %w", err)
	}

	p.mu.Lock()
	if p.documentsSeq.accept(dseq) {
		p.documents = docs
	}
	if p.resultsSeq.accept(rseq) {
		p.results = docs
	}
	p.mu.Unlock()
	return nil
}

// lookup finds a document among the displayed results, then the canonical list.
func (p *Page) lookup(id model.ID) (model.Document, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range [][]model.Document{p.results, p.documents} {
		for _, d := range list {
			if d.ID == id {
				return d, true
			}
		}
	}
	return model.Document{}, false
}

func (p *Page) setAlert(msg string) {
	p.mu.Lock()
	p.alert = msg
	p.mu.Unlock()
}

func (p *Page) logError(ctx context.Context, op string, err error) {
	logger.FromContext(ctx, p.logger).Error(op, zap.Error(err))
}
