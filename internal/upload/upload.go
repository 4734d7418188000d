// Package upload holds a file picked or dropped by the user until the document
// form is submitted. Nothing here is persisted.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"kankou/internal/model"
)

// MaxSize is the largest file accepted from the browser.
const MaxSize = 25 << 20

var (
	ErrNoName          = errors.New("file has no name")
	ErrEmpty           = errors.New("file is empty")
	ErrTooLarge        = errors.New("file is too large")
	ErrContentMismatch = errors.New("file content does not match its extension")
)

// Pending is a client-side file handle waiting for submission.
type Pending struct {
	Filename    string
	Size        int64
	ContentType string
	Pages       int
	Data        []byte

	mismatch bool
}

var disableConfigDir sync.Once

// New inspects data and returns a pending upload for filename.
func New(filename string, data []byte) *Pending {
	p := &Pending{
		Filename: baseName(filename),
		Size:     int64(len(data)),
		Data:     data,
	}
	if len(data) == 0 {
		return p
	}

	mt := mimetype.Detect(data)
	p.ContentType = mt.String()

	switch strings.ToLower(filepath.Ext(p.Filename)) {
	case ".pdf":
		p.mismatch = !hasAncestor(mt, "application/pdf")
	case ".docx":
		p.mismatch = !hasAncestor(mt, "application/zip")
	case ".doc":
		p.mismatch = !hasAncestor(mt, "application/x-ole-storage")
	}

	if !p.mismatch && hasAncestor(mt, "application/pdf") {
		p.Pages = pageCount(data)
	}
	return p
}

// FromFileHeader reads a multipart file part into a pending upload.
func FromFileHeader(fh *multipart.FileHeader) (*Pending, error) {
	if fh.Size > MaxSize {
		return nil, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return New(fh.Filename, data), nil
}

// DeclaredFormat derives the document format from the file extension.
func (p *Pending) DeclaredFormat() (model.Format, bool) {
	return model.FormatFromExtension(filepath.Ext(p.Filename))
}

// Check reports why the handle cannot be submitted, or nil.
func (p *Pending) Check() error {
	switch {
	case p.Filename == "":
		return ErrNoName
	case p.Size == 0 || len(p.Data) == 0:
		return ErrEmpty
	case p.Size > MaxSize:
		return ErrTooLarge
	case p.mismatch:
		return ErrContentMismatch
	}
	return nil
}

// Reader returns a fresh reader over the file content.
func (p *Pending) Reader() io.Reader {
	return bytes.NewReader(p.Data)
}

// baseName strips any client-side directory, including Windows separators.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

func hasAncestor(mt *mimetype.MIME, mime string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mime) {
			return true
		}
	}
	return false
}

func pageCount(data []byte) (n int) {
	disableConfigDir.Do(api.DisableConfigDir)

	defer func() {
		if recover() != nil {
			n = 0
		}
	}()

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0
	}
	return count
}
