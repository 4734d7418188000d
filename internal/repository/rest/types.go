package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kankou/internal/model"
	"kankou/internal/repository"
)

const typesPath = "/api/document-type"

var _ repository.TypeRepository = (*Types)(nil)

// Types implements repository.TypeRepository.
type Types struct {
	c *Client
}

func (t *Types) List(ctx context.Context) (types []model.DocumentType, err error) {
	defer t.c.obs.observe(ctx, "list_types", time.Now(), &err)

	if err = t.c.getJSON(ctx, typesPath, &types); err != nil {
		return nil, fmt.Errorf("list types: %w", err)
	}
	return types, nil
}

// Create posts {name}. The response shape is not guaranteed: a body that is not a
// type object yields a type with an empty ID and the requested name.
func (t *Types) Create(ctx context.Context, name string) (dt *model.DocumentType, err error) {
	defer t.c.obs.observe(ctx, "create_type", time.Now(), &err)

	raw, err := t.c.sendJSON(ctx, http.MethodPost, typesPath, map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("create type: %w", err)
	}

	dt = &model.DocumentType{Name: name}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return dt, nil
	}
	var got model.DocumentType
	if json.Unmarshal(raw, &got) != nil {
		return dt, nil
	}
	dt.ID = got.ID
	if n := strings.TrimSpace(got.Name); n != "" {
		dt.Name = n
	}
	return dt, nil
}
