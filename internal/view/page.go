package view

import (
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"

	"kankou/internal/model"
	"kankou/internal/service"
)

// Fixed labels.
const (
	AppTitle        = "Kankou Moussa"
	AppSubtitle     = "Système de gestion documentaire"
	AllTypesLabel   = "Tous les types"
	NoTypesLabel    = "Aucun type de document défini"
	DeletePrompt    = "Êtes-vous sûr de vouloir supprimer ce document ?"
	CurrentFileText = "Fichier actuel :"
	NewFileText     = "Nouveau fichier sélectionné :"
)

// Option is an entry of a select or radio group.
type Option struct {
	Value    string
	Label    string
	Selected bool
	Disabled bool
}

// Form is the create/edit document modal.
type Form struct {
	Editing     bool
	Title       string
	SubmitLabel string
	Action      string
	Name        string
	Content     string
	TypeOptions []Option
	Formats     []Option
	CurrentFile string
	NewFile     string
	FileSize    string
	FilePages   int
	Errors      map[string]string
	Alert       string
	NoTypes     bool
}

// TypeItem is a row of the type registry modal.
type TypeItem struct {
	ID        model.ID
	Name      string
	Pending   bool
	RemoveURL string
}

// TypesModal is the type registry modal.
type TypesModal struct {
	Items []TypeItem
	Input string
	Error string
	Empty string
}

// DeleteDialog asks for confirmation before a delete.
type DeleteDialog struct {
	Name   string
	Action string
	Prompt string
}

// Page is everything the index template renders.
type Page struct {
	Title       string
	Subtitle    string
	Query       string
	TypeFilter  []Option
	List        List
	Modal       string
	Form        *Form
	Types       *TypesModal
	Delete      *DeleteDialog
	Alert       string
	Notice      string
	ResultCount int
}

// NewPage builds the page view model from a snapshot.
func NewPage(s service.PageSnapshot, alert, notice string, opts Options) Page {
	confirmed := confirmedTypes(s.Types)

	p := Page{
		Title:       AppTitle,
		Subtitle:    AppSubtitle,
		Query:       s.Query.Query,
		TypeFilter:  typeFilter(confirmed, string(s.Query.TypeID)),
		List:        BuildList(s.Results, s.Query.Query, confirmed, opts),
		Alert:       alert,
		Notice:      notice,
		ResultCount: len(s.Results),
	}

	switch s.Modal {
	case service.ModalDocument:
		p.Modal = "document"
		f := newForm(s.Form, s.Types)
		p.Form = &f
	case service.ModalTypes:
		p.Modal = "types"
		p.Types = newTypesModal(s)
	case service.ModalDelete:
		if s.DeleteTarget != nil {
			p.Modal = "delete"
			p.Delete = &DeleteDialog{
				Name:   s.DeleteTarget.Name,
				Action: "/documents/" + url.PathEscape(string(s.DeleteTarget.ID)) + "/delete",
				Prompt: DeletePrompt,
			}
		}
	}
	return p
}

func newForm(s service.FormSnapshot, types []service.TypeEntry) Form {
	f := Form{
		Editing:     s.Editing,
		Title:       "Nouveau document",
		SubmitLabel: "Ajouter le document",
		Action:      "/documents",
		Name:        s.Name,
		Content:     s.Content,
		Errors:      s.Errors,
		Alert:       s.Alert,
	}
	if s.Editing {
		f.Title = "Modifier le document"
		f.SubmitLabel = "Enregistrer les modifications"
		f.Action = "/documents/" + url.PathEscape(string(s.TargetID))
		f.CurrentFile = s.CurrentFileName
	}

	f.TypeOptions = append(f.TypeOptions, Option{Value: "", Label: "Sélectionnez un type", Selected: s.TypeID == ""})
	for _, t := range types {
		f.TypeOptions = append(f.TypeOptions, Option{
			Value:    string(t.ID),
			Label:    t.Name,
			Selected: string(t.ID) == s.TypeID,
			Disabled: t.Pending,
		})
	}
	f.NoTypes = len(types) == 0

	f.Formats = []Option{
		{Value: string(model.FormatPDF), Label: "PDF", Selected: s.Format == string(model.FormatPDF)},
		{Value: string(model.FormatWord), Label: "Word", Selected: s.Format == string(model.FormatWord)},
	}

	if s.File != nil {
		f.NewFile = s.File.Filename
		f.FileSize = humanize.Bytes(uint64(s.File.Size))
		f.FilePages = s.File.Pages
	}
	if f.Errors == nil {
		f.Errors = map[string]string{}
	}
	return f
}

func newTypesModal(s service.PageSnapshot) *TypesModal {
	m := &TypesModal{Input: s.TypeInput, Error: s.TypeError}
	for _, t := range s.Types {
		m.Items = append(m.Items, TypeItem{
			ID:        t.ID,
			Name:      t.Name,
			Pending:   t.Pending,
			RemoveURL: "/types/" + url.PathEscape(string(t.ID)) + "/delete",
		})
	}
	if len(m.Items) == 0 {
		m.Empty = NoTypesLabel
	}
	return m
}

func typeFilter(types []model.DocumentType, selected string) []Option {
	opts := []Option{{Value: "", Label: AllTypesLabel, Selected: selected == ""}}
	for _, t := range types {
		opts = append(opts, Option{Value: string(t.ID), Label: t.Name, Selected: string(t.ID) == selected})
	}
	return opts
}

func confirmedTypes(entries []service.TypeEntry) []model.DocumentType {
	out := make([]model.DocumentType, 0, len(entries))
	for _, e := range entries {
		if !e.Pending {
			out = append(out, e.DocumentType)
		}
	}
	return out
}

// ErrorPage is rendered for failed browser requests.
type ErrorPage struct {
	Title     string
	Status    int
	Message   string
	RequestID string
}

// NewErrorPage builds the error view for status.
func NewErrorPage(status int, message, requestID string) ErrorPage {
	return ErrorPage{
		Title:     fmt.Sprintf("%s - %d", AppTitle, status),
		Status:    status,
		Message:   message,
		RequestID: requestID,
	}
}
