package view

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goodsign/monday"

	"kankou/internal/excerpt"
	"kankou/internal/model"
)

// Empty state texts of the document table.
const (
	EmptyTitle = "Aucun document trouvé"
	EmptyHint  = "Essayez de modifier vos critères de recherche ou ajoutez de nouveaux documents."
)

// Options holds rendering settings shared by every view.
type Options struct {
	// PublicURL is the API base URL reachable from the browser, used for downloads.
	PublicURL string
	Location  *time.Location
	Window    int
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Row is one document line of the table.
type Row struct {
	ID          model.ID
	Name        string
	TypeName    string
	Format      string
	Updated     string
	Excerpt     []excerpt.Segment
	DownloadURL string
	EditURL     string
	DeleteURL   string
}

// List is the document table. When Empty is set the table is replaced by the
// empty state.
type List struct {
	Rows       []Row
	Empty      bool
	EmptyTitle string
	EmptyHint  string
}

// BuildList renders docs in the given order, highlighting term in each excerpt.
// Type names missing from a document are resolved from types.
func BuildList(docs []model.Document, term string, types []model.DocumentType, opts Options) List {
	if len(docs) == 0 {
		return List{Empty: true, EmptyTitle: EmptyTitle, EmptyHint: EmptyHint}
	}

	names := make(map[model.ID]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}

	window := opts.Window
	if window <= 0 {
		window = excerpt.DefaultWindow
	}

	rows := make([]Row, 0, len(docs))
	for _, d := range docs {
		typeName := d.TypeName
		if typeName == "" {
			typeName = names[d.TypeID]
		}
		updated := d.UpdatedAt.Time
		if updated.IsZero() {
			updated = d.InsertedAt.Time
		}
		id := url.PathEscape(string(d.ID))
		rows = append(rows, Row{
			ID:          d.ID,
			Name:        d.Name,
			TypeName:    typeName,
			Format:      string(d.Format),
			Updated:     FormatDate(updated, opts.location()),
			Excerpt:     excerpt.Preview(d.Content, term, window),
			DownloadURL: DownloadURL(opts.PublicURL, d.ID),
			EditURL:     "/documents/" + id + "/edit",
			DeleteURL:   "/documents/" + id + "/delete",
		})
	}
	return List{Rows: rows}
}

// DownloadURL is the API endpoint streaming the file of id.
func DownloadURL(publicURL string, id model.ID) string {
	return strings.TrimSuffix(publicURL, "/") + "/api/documents/" + url.PathEscape(string(id)) + "/download"
}

// FormatDate renders t the way French locales show a short date and time,
// e.g. "02 janv. 2024, 14:05". The zero time renders as an empty string.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%02d %s %d, %s", t.Day(), shortMonth(t), t.Year(), t.Format("15:04"))
}

// shortMonth abbreviates the French month name, dotted when it is truncated.
func shortMonth(t time.Time) string {
	short := monday.Format(t, "Jan", monday.LocaleFrFR)
	if short == monday.Format(t, "January", monday.LocaleFrFR) || strings.HasSuffix(short, ".") {
		return short
	}
	return short + "."
}
