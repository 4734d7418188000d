// Package validation holds the field rules checked before any call to the document API.
package validation

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"kankou/internal/model"
	"kankou/internal/upload"
)

// Rule identifies which constraint a field broke.
type Rule string

const (
	Required  Rule = "Required"
	TooShort  Rule = "TooShort"
	TooLong   Rule = "TooLong"
	Invalid   Rule = "Invalid"
	Duplicate Rule = "Duplicate"
)

// Form field names, shared with the HTML form and the multipart payload.
const (
	FieldName    = "doc_name"
	FieldType    = "doc_type"
	FieldFormat  = "doc_format"
	FieldFile    = "file"
	FieldContent = "doc_content"
	FieldTypeNew = "type_name"
)

// Length bounds, in characters.
const (
	NameMin   = 2
	NameMax   = 500
	FormatMin = 2
	FormatMax = 30
)

// FieldError is a single failed constraint.
type FieldError struct {
	Field   string
	Rule    Rule
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors maps a field name to its error. An empty mapping means valid.
type Errors map[string]*FieldError

// Valid reports whether no field failed.
func (e Errors) Valid() bool { return len(e) == 0 }

// Messages returns the field → message mapping rendered next to inputs.
func (e Errors) Messages() map[string]string {
	out := make(map[string]string, len(e))
	for k, v := range e {
		out[k] = v.Message
	}
	return out
}

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e[k].Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Mode selects create or edit rules for the file field.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Input is a snapshot of the document form.
type Input struct {
	Name   string
	TypeID string
	Format string
	File   *upload.Pending
}

type documentFields struct {
	Name   string `validate:"min=2,max=500"`
	Format string `validate:"min=2,max=30,oneof=pdf word"`
	TypeID string `validate:"required"`
}

var validate = validator.New()

var fieldByStruct = map[string]string{
	"Name":   FieldName,
	"Format": FieldFormat,
	"TypeID": FieldType,
}

var structByField = map[string]string{
	FieldName:   "Name",
	FieldFormat: "Format",
	FieldType:   "TypeID",
}

// Document validates every field of in.
func Document(in Input, mode Mode) Errors {
	errs := Errors{}
	collect(errs, validate.Struct(fieldsOf(in)))
	if fe := file(in.File, mode); fe != nil {
		errs[FieldFile] = fe
	}
	return errs
}

// Field validates a single touched field of in. It returns nil when the field passes.
func Field(field string, in Input, mode Mode) *FieldError {
	if field == FieldFile {
		return file(in.File, mode)
	}
	name, ok := structByField[field]
	if !ok {
		return nil
	}
	errs := Errors{}
	collect(errs, validate.StructPartial(fieldsOf(in), name))
	return errs[field]
}

// TypeName validates a new document type name against the active set.
func TypeName(name string, existing []model.DocumentType) *FieldError {
	name = strings.TrimSpace(name)
	if name == "" {
		return &FieldError{Field: FieldTypeNew, Rule: Required, Message: messages[FieldTypeNew][Required]}
	}
	for _, t := range existing {
		if strings.EqualFold(strings.TrimSpace(t.Name), name) {
			return &FieldError{Field: FieldTypeNew, Rule: Duplicate, Message: messages[FieldTypeNew][Duplicate]}
		}
	}
	return nil
}

func fieldsOf(in Input) documentFields {
	return documentFields{
		Name:   strings.TrimSpace(in.Name),
		Format: strings.TrimSpace(in.Format),
		TypeID: strings.TrimSpace(in.TypeID),
	}
}

func file(p *upload.Pending, mode Mode) *FieldError {
	if p == nil {
		if mode == ModeCreate {
			return &FieldError{Field: FieldFile, Rule: Required, Message: messages[FieldFile][Required]}
		}
		return nil
	}
	if p.Check() != nil {
		return &FieldError{Field: FieldFile, Rule: Invalid, Message: messages[FieldFile][Invalid]}
	}
	return nil
}

func collect(errs Errors, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		field, ok := fieldByStruct[fe.StructField()]
		if !ok {
			continue
		}
		rule := ruleForTag(fe.Tag())
		errs[field] = &FieldError{Field: field, Rule: rule, Message: messages[field][rule]}
	}
}

func ruleForTag(tag string) Rule {
	switch tag {
	case "min":
		return TooShort
	case "max":
		return TooLong
	case "required":
		return Required
	default:
		return Invalid
	}
}
