// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package weaviate inserts chunks into a multi-tenant Weaviate class.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/vectordb"
)

const (
	// DefaultClassName is used when Config.ClassName is empty.
	DefaultClassName = "Article"

	// DefaultTenant is used when Config.Tenant is empty.
	DefaultTenant = "alakel"
)

var (
	// ErrURLRequired is returned when no cluster URL is configured.
	ErrURLRequired = errors.New("weaviate url is required")

	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("weaviate api key is required")
)

// Config selects the Weaviate cluster, class and tenant.
type Config struct {
	URL       string
	APIKey    string
	ClassName string
	Tenant    string
}

type api interface {
	Ready(ctx context.Context) (bool, error)
	Tenants(ctx context.Context, class string) ([]string, error)
	CreateTenant(ctx context.Context, class, tenant string) error
	BatchObjects(ctx context.Context, objects []*models.Object) ([]models.ObjectsGetResponse, error)
}

type sdkClient struct {
	c *weaviate.Client
}

func (s sdkClient) Ready(ctx context.Context) (bool, error) {
	return s.c.Misc().ReadyChecker().Do(ctx)
}

func (s sdkClient) Tenants(ctx context.Context, class string) ([]string, error) {
	tenants, err := s.c.Schema().TenantsGetter().WithClassName(class).Do(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tenants))
	for _, t := range tenants {
		names = append(names, t.Name)
	}
	return names, nil
}

func (s sdkClient) CreateTenant(ctx context.Context, class, tenant string) error {
	return s.c.Schema().TenantsCreator().
		WithClassName(class).
		WithTenants(models.Tenant{Name: tenant}).
		Do(ctx)
}

func (s sdkClient) BatchObjects(ctx context.Context, objects []*models.Object) ([]models.ObjectsGetResponse, error) {
	return s.c.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
}

// Inserter writes chunks as objects of one class under one tenant.
type Inserter struct {
	api      api
	cfg      Config
	settings vectordb.Settings
}

// New creates a Weaviate inserter. A URL without a scheme is treated as https.
func New(cfg Config, opts ...vectordb.Option) (*Inserter, error) {
	if cfg.URL == "" {
		return nil, ErrURLRequired
	}
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	scheme, host, err := splitURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client, err := weaviate.NewClient(weaviate.Config{
		Host:       host,
		Scheme:     scheme,
		AuthConfig: auth.ApiKey{Value: cfg.APIKey},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return newInserter(sdkClient{client}, cfg, opts...), nil
}

func newInserter(a api, cfg Config, opts ...vectordb.Option) *Inserter {
	if cfg.ClassName == "" {
		cfg.ClassName = DefaultClassName
	}
	if cfg.Tenant == "" {
		cfg.Tenant = DefaultTenant
	}
	return &Inserter{api: a, cfg: cfg, settings: vectordb.NewSettings("weaviate", opts...)}
}

func splitURL(raw string) (scheme, host string, err error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid weaviate url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid weaviate url %q: missing host", raw)
	}
	return u.Scheme, u.Host, nil
}

// Insert ensures the tenant exists, then writes chunks in batches.
func (ins *Inserter) Insert(ctx context.Context, chunks []core.Chunk) vectordb.Result {
	logger := ins.settings.Logger

	ready, err := ins.api.Ready(ctx)
	if err != nil {
		return vectordb.Errorf("weaviate readiness check failed: %v", err)
	}
	if !ready {
		return vectordb.Errorf("weaviate cluster is not ready")
	}
	if err := ins.ensureTenant(ctx); err != nil {
		return vectordb.Errorf("failed to prepare tenant %q: %v", ins.cfg.Tenant, err)
	}

	valid := vectordb.FilterEmbedded(chunks, logger)
	inserted, failed := vectordb.InsertBatches(ctx, valid, ins.settings, ins.upsert)

	res := vectordb.Summarize(len(chunks), inserted, failed)
	logger.Info("weaviate insertion finished", "status", res.Status, "inserted", inserted, "total", len(chunks))
	return res
}

// ensureTenant creates the tenant when it is missing. When listing fails
// creation is attempted anyway.
func (ins *Inserter) ensureTenant(ctx context.Context) error {
	logger := ins.settings.Logger
	names, err := ins.api.Tenants(ctx, ins.cfg.ClassName)
	if err == nil {
		for _, n := range names {
			if n == ins.cfg.Tenant {
				logger.Debug("tenant exists", "class", ins.cfg.ClassName, "tenant", ins.cfg.Tenant)
				return nil
			}
		}
	} else {
		logger.Warn("failed to list tenants, trying to create", "class", ins.cfg.ClassName, "err", err)
	}
	if err := ins.api.CreateTenant(ctx, ins.cfg.ClassName, ins.cfg.Tenant); err != nil {
		return err
	}
	logger.Info("tenant created", "class", ins.cfg.ClassName, "tenant", ins.cfg.Tenant)
	return nil
}

func (ins *Inserter) upsert(ctx context.Context, batch []core.Chunk) (int, error) {
	objects := make([]*models.Object, len(batch))
	for i, c := range batch {
		props := vectordb.Metadata(c)
		props["date"] = vectordb.NormalizeDate(c.Date)
		objects[i] = &models.Object{
			Class:      ins.cfg.ClassName,
			ID:         strfmt.UUID(core.StableUUID(c.ID)),
			Properties: props,
			Vector:     models.C11yVector(c.Embedding),
			Tenant:     ins.cfg.Tenant,
		}
	}

	resp, err := ins.api.BatchObjects(ctx, objects)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil || len(r.Result.Errors.Error) == 0 {
			continue
		}
		failed++
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				ins.settings.Logger.Warn("object rejected", "id", r.ID, "err", e.Message)
			}
		}
	}
	if failed > 0 {
		return len(batch) - failed, &vectordb.PartialError{Inserted: len(batch) - failed, Failed: failed}
	}
	return len(batch), nil
}

// Close is a no-op; the client holds no persistent connection.
func (ins *Inserter) Close() error {
	return nil
}
