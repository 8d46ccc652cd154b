package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/application/pricing"
	"github.com/storefront/backend/internal/domain/shipping"
	"github.com/storefront/backend/internal/domain/tax"
	"go.uber.org/zap"
)

// versionKey is the shared Redis key bumped whenever pricing configuration
// changes. Instances compare it against the version they loaded and refresh
// when it moves, so a fleet invalidates together.
const versionKey = "pricing:config:version"

// Provider loads pricing configuration into immutable snapshots and keeps
// them fresh. Requests always read one consistent snapshot via Current; a
// background refresh swaps the pointer atomically.
type Provider struct {
	taxRepo      tax.Repository
	shippingRepo shipping.Repository
	strategies   shipping.FeeStrategyProvider
	redis        *redis.Client
	interval     time.Duration
	log          *zap.Logger

	current atomic.Pointer[pricing.Snapshot]

	mu            sync.Mutex
	loadedVersion string
	stop          chan struct{}
}

// Option configures a Provider
type Option func(*Provider)

// WithRedis enables cross-instance invalidation through the shared version
// key. Without it the provider refreshes purely on its interval.
func WithRedis(client *redis.Client) Option {
	return func(p *Provider) {
		p.redis = client
	}
}

// WithRefreshInterval sets how often the snapshot is refreshed
func WithRefreshInterval(interval time.Duration) Option {
	return func(p *Provider) {
		p.interval = interval
	}
}

// WithLogger sets the provider's logger
func WithLogger(log *zap.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// NewProvider creates a snapshot provider over the given repositories
func NewProvider(taxRepo tax.Repository, shippingRepo shipping.Repository, strategies shipping.FeeStrategyProvider, opts ...Option) *Provider {
	p := &Provider{
		taxRepo:      taxRepo,
		shippingRepo: shippingRepo,
		strategies:   strategies,
		interval:     time.Minute,
		log:          zap.NewNop(),
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("pricing.snapshot_provider")
	return p
}

// Load reads the full configuration set, builds a validated snapshot and
// makes it current
func (p *Provider) Load(ctx context.Context) error {
	classes, err := p.taxRepo.FindActiveClasses(ctx)
	if err != nil {
		return fmt.Errorf("loading tax classes: %w", err)
	}
	rates, err := p.taxRepo.FindActiveRates(ctx)
	if err != nil {
		return fmt.Errorf("loading tax rates: %w", err)
	}
	rules, err := p.taxRepo.FindActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("loading tax rules: %w", err)
	}
	zones, err := p.shippingRepo.FindActiveZones(ctx)
	if err != nil {
		return fmt.Errorf("loading shipping zones: %w", err)
	}
	carriers, err := p.shippingRepo.FindActiveCarriers(ctx)
	if err != nil {
		return fmt.Errorf("loading carriers: %w", err)
	}
	methods, err := p.shippingRepo.FindActiveMethods(ctx)
	if err != nil {
		return fmt.Errorf("loading shipping methods: %w", err)
	}
	blackouts, err := p.shippingRepo.FindActiveBlackouts(ctx)
	if err != nil {
		return fmt.Errorf("loading shipping blackouts: %w", err)
	}
	settings, err := p.shippingRepo.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("loading shipping settings: %w", err)
	}

	snap := pricing.BuildSnapshot(pricing.SnapshotInput{
		TaxClasses: classes,
		TaxRates:   rates,
		TaxRules:   rules,
		Zones:      zones,
		Carriers:   carriers,
		Methods:    methods,
		Blackouts:  blackouts,
		Settings:   settings,
	}, p.strategies, p.log)

	p.current.Store(snap)
	p.rememberVersion(ctx)

	p.log.Info("pricing snapshot loaded",
		zap.Int("tax_classes", len(classes)),
		zap.Int("tax_rules", len(rules)),
		zap.Int("zones", len(zones)),
		zap.Int("methods", len(methods)),
		zap.Int("config_issues", len(snap.Issues())))
	return nil
}

// Current returns the current snapshot, loading one first if none exists yet
func (p *Provider) Current(ctx context.Context) (*pricing.Snapshot, error) {
	if snap := p.current.Load(); snap != nil {
		return snap, nil
	}
	if err := p.Load(ctx); err != nil {
		return nil, err
	}
	return p.current.Load(), nil
}

// Start begins periodic refresh until Stop is called. Between full
// refreshes the shared version key is polled; an unchanged version skips
// the reload.
func (p *Provider) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.refresh(ctx)
			}
		}
	}()
}

// Stop halts the periodic refresh
func (p *Provider) Stop() {
	close(p.stop)
}

// Invalidate bumps the shared version key so every instance refreshes on
// its next tick. Without Redis it reloads this instance immediately.
func (p *Provider) Invalidate(ctx context.Context) error {
	if p.redis == nil {
		return p.Load(ctx)
	}
	if err := p.redis.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("bumping snapshot version: %w", err)
	}
	return p.Load(ctx)
}

func (p *Provider) refresh(ctx context.Context) {
	if p.redis != nil && !p.versionChanged(ctx) {
		return
	}
	if err := p.Load(ctx); err != nil {
		// Keep serving the previous snapshot; a transient load failure
		// must not take pricing down
		p.log.Error("snapshot refresh failed, keeping previous snapshot", zap.Error(err))
	}
}

// versionChanged reports whether the shared version key moved since the
// last load. Redis errors count as changed so a flaky cache degrades to
// interval-based refresh.
func (p *Provider) versionChanged(ctx context.Context) bool {
	version, err := p.redis.Get(ctx, versionKey).Result()
	if err != nil {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return version != p.loadedVersion
}

func (p *Provider) rememberVersion(ctx context.Context) {
	if p.redis == nil {
		return
	}
	version, err := p.redis.Get(ctx, versionKey).Result()
	if err != nil {
		return
	}
	p.mu.Lock()
	p.loadedVersion = version
	p.mu.Unlock()
}
