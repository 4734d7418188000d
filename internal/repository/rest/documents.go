package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"kankou/internal/model"
	"kankou/internal/repository"
)

const (
	documentsPath = "/api/document"
	searchPath    = "/api/search"
)

var _ repository.DocumentRepository = (*Documents)(nil)

// Documents implements repository.DocumentRepository.
type Documents struct {
	c *Client
}

func (d *Documents) List(ctx context.Context) (docs []model.Document, err error) {
	defer d.c.obs.observe(ctx, "list_documents", time.Now(), &err)

	if err = d.c.getJSON(ctx, documentsPath, &docs); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Search sends only the parameters that are set.
func (d *Documents) Search(ctx context.Context, q repository.SearchQuery) (docs []model.Document, err error) {
	defer d.c.obs.observe(ctx, "search_documents", time.Now(), &err)

	params := url.Values{}
	if q.Query != "" {
		params.Set("query", q.Query)
	}
	if q.TypeID != "" {
		params.Set("type", string(q.TypeID))
	}
	path := searchPath
	if enc := params.Encode(); enc != "" {
		path += "?" + enc
	}

	if err = d.c.getJSON(ctx, path, &docs); err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return docs, nil
}

func (d *Documents) Create(ctx context.Context, p repository.DocumentPayload) (doc *model.Document, err error) {
	defer d.c.obs.observe(ctx, "create_document", time.Now(), &err)

	if p.File == nil {
		return nil, fmt.Errorf("create document: file is required")
	}
	doc, err = d.submit(ctx, http.MethodPost, documentsPath, p)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (d *Documents) Update(ctx context.Context, id model.ID, p repository.DocumentPayload) (doc *model.Document, err error) {
	defer d.c.obs.observe(ctx, "update_document", time.Now(), &err)

	p.WithContent = false
	doc, err = d.submit(ctx, http.MethodPut, documentsPath+"/"+url.PathEscape(string(id)), p)
	if err != nil {
		return nil, fmt.Errorf("update document %s: %w", id, err)
	}
	return doc, nil
}

func (d *Documents) Delete(ctx context.Context, id model.ID) (err error) {
	defer d.c.obs.observe(ctx, "delete_document", time.Now(), &err)

	resp, err := d.c.doRequest(ctx, http.MethodDelete, documentsPath+"/"+url.PathEscape(string(id)), "", nil)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (d *Documents) submit(ctx context.Context, method, path string, p repository.DocumentPayload) (*model.Document, error) {
	body, contentType, err := encodeMultipart(p)
	if err != nil {
		return nil, err
	}

	resp, err := d.c.doRequest(ctx, method, path, contentType, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	doc := &model.Document{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return doc, nil
}

// encodeMultipart writes the payload fields in wire order, then the file part if any.
func encodeMultipart(p repository.DocumentPayload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"doc_name", p.Name},
		{"doc_type_id", string(p.TypeID)},
	}
	if p.WithContent {
		fields = append(fields, [2]string{"doc_content", p.Content})
	}
	fields = append(fields, [2]string{"doc_format", string(p.Format)})

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	if p.File != nil {
		part, err := w.CreateFormFile("file", p.File.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(part, p.File.Content); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
