// Package factory selects and builds the note store backend from
// configuration.
package factory

import (
	"context"
	"strings"
	"sync"

	"saas-notes-be/internal/config"
	"saas-notes-be/internal/pkg/logger"
	"saas-notes-be/internal/repository/contract"
	"saas-notes-be/internal/repository/dynamo"
	"saas-notes-be/internal/repository/memory"
)

const module = "STORE"

// DynamoClientFunc builds the DynamoDB client. Overridable so tests can
// construct the dynamo backend without AWS.
type DynamoClientFunc func(ctx context.Context, cfg config.StoreConfig) (dynamo.API, error)

func defaultDynamoClient(ctx context.Context, cfg config.StoreConfig) (dynamo.API, error) {
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// New builds the backend named by cfg.Backend. Unknown names fall back to
// the in-memory backend with a warning. A dynamo backend with missing
// settings is a *contract.ConfigError.
func New(ctx context.Context, cfg config.StoreConfig, log logger.ILogger, opts ...contract.Option) (contract.NoteRepository, error) {
	return build(ctx, cfg, log, defaultDynamoClient, opts...)
}

// Canonical maps a configured backend name onto the backend New builds for
// it: "dynamo" or "inmemory".
func Canonical(backend string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case config.BackendDynamo, "dynamodb":
		return config.BackendDynamo
	default:
		return config.BackendInMemory
	}
}

func build(ctx context.Context, cfg config.StoreConfig, log logger.ILogger, newClient DynamoClientFunc, opts ...contract.Option) (contract.NoteRepository, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	log.Info(module, "Creating notes store", map[string]interface{}{"backend": Canonical(backend)})

	switch backend {
	case config.BackendInMemory:
		return memory.NewNoteRepository(opts...), nil

	case config.BackendDynamo, "dynamodb":
		if missing := cfg.MissingDynamoSettings(); len(missing) > 0 {
			return nil, contract.NewConfigError(config.BackendDynamo, missing...)
		}
		client, err := newClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info(module, "DynamoDB notes store ready", map[string]interface{}{
			"table":    cfg.DynamoTable,
			"region":   cfg.AWSRegion,
			"endpoint": cfg.DynamoEndpoint,
		})
		return dynamo.NewNoteRepository(client, cfg.DynamoTable, opts...), nil

	default:
		log.Warn(module, "Unknown store backend, falling back to inmemory", map[string]interface{}{"backend": cfg.Backend})
		return memory.NewNoteRepository(opts...), nil
	}
}

// Provider owns the one store instance of a process. The instance is built
// on first use and kept until Reset. Services holding the Provider resolve
// the instance per call, so a Reset takes effect on their next operation.
type Provider struct {
	cfg       config.StoreConfig
	log       logger.ILogger
	opts      []contract.Option
	newClient DynamoClientFunc

	mu      sync.Mutex
	repo    contract.NoteRepository
	backend string
}

func NewProvider(cfg config.StoreConfig, log logger.ILogger, opts ...contract.Option) *Provider {
	return &Provider{cfg: cfg, log: log, opts: opts, newClient: defaultDynamoClient}
}

// WithDynamoClient replaces the DynamoDB client constructor.
func (p *Provider) WithDynamoClient(fn DynamoClientFunc) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.newClient = fn
	return p
}

// Get returns the store, building it on the first call. A failed build is
// not cached.
func (p *Provider) Get(ctx context.Context) (contract.NoteRepository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.repo != nil {
		return p.repo, nil
	}
	repo, err := build(ctx, p.cfg, p.log, p.newClient, p.opts...)
	if err != nil {
		return nil, err
	}
	p.repo = repo
	p.backend = Canonical(p.cfg.Backend)
	return repo, nil
}

// Backend names the backend of the current instance, or of the one the next
// Get would build when there is none.
func (p *Provider) Backend() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.repo != nil {
		return p.backend
	}
	return Canonical(p.cfg.Backend)
}

// Reset drops the current instance; the next Get builds a new one.
// Optionally swaps the store settings used for that build.
func (p *Provider) Reset(cfg ...config.StoreConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.repo = nil
	if len(cfg) > 0 {
		p.cfg = cfg[0]
	}
}
