package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"kankou/internal/logger"
	"kankou/internal/model"
	"kankou/internal/repository"
	"kankou/internal/upload"
	"kankou/internal/validation"
)

// FormState is the lifecycle state of the document form.
type FormState int

const (
	FormClosed FormState = iota
	FormOpen
	FormValidating
	FormSubmitting
)

func (s FormState) String() string {
	switch s {
	case FormOpen:
		return "open"
	case FormValidating:
		return "validating"
	case FormSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

// FormResult is reported to the opener after a successful submission.
type FormResult struct {
	Document *model.Document
	Editing  bool
}

// ResultFunc receives the outcome of a form opened with Open.
type ResultFunc func(ctx context.Context, res FormResult)

// TypeResolver looks up confirmed document types.
type TypeResolver interface {
	Resolve(id model.ID) (model.DocumentType, bool)
}

// FormFields are the text inputs of the form.
type FormFields struct {
	Name    string
	TypeID  string
	Content string
}

// FormSnapshot is a read-only copy of the form for rendering.
type FormSnapshot struct {
	State           FormState
	Editing         bool
	TargetID        model.ID
	Name            string
	TypeID          string
	Format          string
	Content         string
	CurrentFileName string
	File            *upload.Pending
	Errors          map[string]string
	Alert           string
}

// DocumentForm drives the create and edit workflow. Create and edit share the
// same state machine; Editing is set when the form was opened on a document.
type DocumentForm struct {
	docs   repository.DocumentRepository
	types  TypeResolver
	logger *zap.Logger

	mu       sync.Mutex
	state    FormState
	target   *model.Document
	fields   FormFields
	format   string
	file     *upload.Pending
	touched  map[string]bool
	errs     validation.Errors
	alert    string
	onResult ResultFunc
}

// NewDocumentForm creates a closed form.
func NewDocumentForm(docs repository.DocumentRepository, types TypeResolver, l *zap.Logger) *DocumentForm {
	if l == nil {
		l = zap.NewNop()
	}
	return &DocumentForm{docs: docs, types: types, logger: l, touched: map[string]bool{}}
}

// Open resets the form and opens it. A nil target starts an empty create form
// with the pdf format; otherwise the form is prefilled from target.
// onResult is called once after a successful submission.
func (f *DocumentForm) Open(target *model.Document, onResult ResultFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reset()
	f.state = FormOpen
	f.onResult = onResult
	if target == nil {
		f.format = string(model.FormatPDF)
		return
	}
	t := *target
	f.target = &t
	f.fields = FormFields{Name: t.Name, TypeID: string(t.TypeID), Content: t.Content}
	f.format = string(t.Format)
}

// Close discards every input, the pending file included.
func (f *DocumentForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

// IsOpen reports whether the form accepts input.
func (f *DocumentForm) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != FormClosed
}

// SetFields replaces the text inputs.
func (f *DocumentForm) SetFields(in FormFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.fields = in
	f.revalidateTouched()
	return nil
}

// SetFormat records an explicit format choice.
func (f *DocumentForm) SetFormat(format string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.format = strings.TrimSpace(format)
	f.revalidateTouched()
	return nil
}

// SetFile sets the pending file, whether it was picked or dropped. When the
// extension maps to a known format, the format follows it. A later SetFormat
// still wins.
func (f *DocumentForm) SetFile(p *upload.Pending) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.file = p
	if p != nil {
		if format, ok := p.DeclaredFormat(); ok {
			f.format = string(format)
		}
	}
	f.touched[validation.FieldFile] = true
	f.revalidateTouched()
	return nil
}

// Touch marks fields as visited and returns the current messages of all
// visited fields.
func (f *DocumentForm) Touch(fields ...string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return nil, err
	}
	for _, name := range fields {
		f.touched[name] = true
	}
	f.revalidateTouched()
	return f.errs.Messages(), nil
}

// Submit validates the form and sends it to the API. On validation failure the
// returned error is validation.Errors and the form stays open with the errors.
// On API failure the form stays open with an alert and its inputs intact.
// On success the form is reset, closed, and the result callback is invoked.
func (f *DocumentForm) Submit(ctx context.Context) (*model.Document, error) {
	f.mu.Lock()
	switch f.state {
	case FormClosed:
		f.mu.Unlock()
		return nil, ErrFormClosed
	case FormValidating, FormSubmitting:
		f.mu.Unlock()
		return nil, ErrFormBusy
	}

	f.state = FormValidating
	f.alert = ""
	mode := f.mode()
	errs := validation.Document(f.input(), mode)
	if _, ok := errs[validation.FieldType]; !ok {
		if _, found := f.types.Resolve(model.ID(strings.TrimSpace(f.fields.TypeID))); !found {
			errs[validation.FieldType] = validation.UnknownType()
		}
	}
	if !errs.Valid() {
		for name := range errs {
			f.touched[name] = true
		}
		f.errs = errs
		f.state = FormOpen
		f.mu.Unlock()
		return nil, errs
	}
	f.errs = validation.Errors{}

	f.state = FormSubmitting
	payload := f.payload()
	editing := f.target != nil
	var targetID model.ID
	if editing {
		targetID = f.target.ID
	}
	f.mu.Unlock()

	var (
		doc *model.Document
		err error
	)
	if editing {
		doc, err = f.docs.Update(ctx, targetID, payload)
	} else {
		doc, err = f.docs.Create(ctx, payload)
	}

	f.mu.Lock()
	if err != nil {
		f.state = FormOpen
		if editing {
			f.alert = AlertUpdateFailed
		} else {
			f.alert = AlertCreateFailed
		}
		f.mu.Unlock()
		logger.FromContext(ctx, f.logger).Error("submit document",
			zap.Bool("editing", editing),
			zap.String("doc_id", string(targetID)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("submit document: %w", err)
	}
	cb := f.onResult
	f.reset()
	f.mu.Unlock()

	if cb != nil {
		cb(ctx, FormResult{Document: doc, Editing: editing})
	}
	return doc, nil
}

// Snapshot returns a copy of the form for rendering.
func (f *DocumentForm) Snapshot() FormSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := FormSnapshot{
		State:   f.state,
		Editing: f.target != nil,
		Name:    f.fields.Name,
		TypeID:  f.fields.TypeID,
		Format:  f.format,
		Content: f.fields.Content,
		File:    f.file,
		Errors:  f.errs.Messages(),
		Alert:   f.alert,
	}
	if f.target != nil {
		s.TargetID = f.target.ID
		s.CurrentFileName = f.target.DisplayFileName()
	}
	return s
}

func (f *DocumentForm) editable() error {
	switch f.state {
	case FormClosed:
		return ErrFormClosed
	case FormValidating, FormSubmitting:
		return ErrFormBusy
	}
	return nil
}

func (f *DocumentForm) mode() validation.Mode {
	if f.target != nil {
		return validation.ModeEdit
	}
	return validation.ModeCreate
}

func (f *DocumentForm) input() validation.Input {
	return validation.Input{
		Name:   f.fields.Name,
		TypeID: f.fields.TypeID,
		Format: f.format,
		File:   f.file,
	}
}

// revalidateTouched refreshes the messages of visited fields only.
func (f *DocumentForm) revalidateTouched() {
	in := f.input()
	mode := f.mode()
	errs := validation.Errors{}
	for name := range f.touched {
		if fe := validation.Field(name, in, mode); fe != nil {
			errs[name] = fe
		}
	}
	f.errs = errs
}

func (f *DocumentForm) payload() repository.DocumentPayload {
	p := repository.DocumentPayload{
		Name:        strings.TrimSpace(f.fields.Name),
		TypeID:      model.ID(strings.TrimSpace(f.fields.TypeID)),
		Format:      model.Format(f.format),
		Content:     f.fields.Content,
		WithContent: f.target == nil,
	}
	if f.file != nil {
		p.File = &repository.FilePart{Name: f.file.Filename, Content: f.file.Reader()}
	}
	return p
}

func (f *DocumentForm) reset() {
	f.state = FormClosed
	f.target = nil
	f.fields = FormFields{}
	f.format = ""
	f.file = nil
	f.touched = map[string]bool{}
	f.errs = validation.Errors{}
	f.alert = ""
	f.onResult = nil
}

// IsValidation reports whether err carries field errors.
func IsValidation(err error) bool {
	var errs validation.Errors
	return errors.As(err, &errs)
}
