package currency

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
)

// Registry keeps every non-deleted currency in memory, indexed by
// lowercase identifier and by store id. Writes go to persistence first
// and the indices are refreshed under the mutex afterwards.
type Registry struct {
	repo CurrencyRepository

	mu           sync.RWMutex
	byIdentifier map[string]*Currency
	byID         map[uint]*Currency
}

func NewRegistry(repo CurrencyRepository) *Registry {
	return &Registry{
		repo:         repo,
		byIdentifier: make(map[string]*Currency),
		byID:         make(map[uint]*Currency),
	}
}

// Load replaces both indices with the current persisted state.
func (g *Registry) Load(ctx context.Context) error {
	list, err := g.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	byIdentifier := make(map[string]*Currency, len(list))
	byID := make(map[uint]*Currency, len(list))
	for i := range list {
		c := list[i]
		byIdentifier[strings.ToLower(c.Identifier)] = &c
		byID[c.ID] = &c
	}
	g.mu.Lock()
	g.byIdentifier = byIdentifier
	g.byID = byID
	g.mu.Unlock()
	return nil
}

// Bootstrap creates the seed currency as primary when no currency exists.
func (g *Registry) Bootstrap(ctx context.Context, seed Seed) error {
	g.mu.RLock()
	empty := len(g.byID) == 0
	g.mu.RUnlock()
	if !empty {
		return nil
	}

	c, err := g.Create(ctx, seed.Identifier, seed.Name, seed.Precision, seed.Symbol, seed.DefaultMaxBalance, seed.ConsoleLog)
	if err != nil {
		return err
	}
	if err := g.SetPrimary(ctx, c.Identifier); err != nil {
		return err
	}
	log.Printf("bootstrapped default currency %q as primary", c.Identifier)
	return nil
}

func (g *Registry) Create(ctx context.Context, identifier, name string, precision int32, symbol string, defaultMaxBalance int64, consoleLog bool) (*Currency, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, ErrCurrencyNotFound
	}
	if precision < MinPrecision {
		precision = MinPrecision
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}

	// soft-deleted identifiers stay reserved forever
	_, err := g.repo.FindByIdentifier(ctx, identifier, true)
	if err == nil {
		return nil, ErrDuplicateIdentifier
	}
	if !errors.Is(err, ErrCurrencyNotFound) {
		return nil, err
	}

	c := &Currency{
		Identifier:        identifier,
		Name:              name,
		Symbol:            symbol,
		Precision:         precision,
		DefaultMaxBalance: defaultMaxBalance,
		IsPrimary:         false,
		Enabled:           true,
		Deleted:           false,
		ConsoleLog:        consoleLog,
	}
	if err := g.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	g.put(c)
	return copyOf(c), nil
}

func (g *Registry) Delete(ctx context.Context, identifier string) error {
	c, ok := g.GetByIdentifier(identifier)
	if !ok {
		return ErrCurrencyNotFound
	}
	if c.IsPrimary {
		return ErrPrimaryProtected
	}
	if err := g.repo.SoftDelete(ctx, c.ID); err != nil {
		return err
	}
	g.remove(c)
	return nil
}

func (g *Registry) Enable(ctx context.Context, identifier string) error {
	return g.setEnabled(ctx, identifier, true)
}

func (g *Registry) Disable(ctx context.Context, identifier string) error {
	return g.setEnabled(ctx, identifier, false)
}

func (g *Registry) setEnabled(ctx context.Context, identifier string, enabled bool) error {
	c, ok := g.GetByIdentifier(identifier)
	if !ok {
		return ErrCurrencyNotFound
	}
	if c.Enabled == enabled {
		return nil
	}
	c.Enabled = enabled
	if err := g.repo.Update(ctx, c); err != nil {
		return err
	}
	g.put(c)
	return nil
}

// SetPrimary leaves exactly one non-deleted primary currency on success.
func (g *Registry) SetPrimary(ctx context.Context, identifier string) error {
	c, ok := g.GetByIdentifier(identifier)
	if !ok {
		return ErrCurrencyNotFound
	}
	if err := g.repo.ElectPrimary(ctx, c.ID); err != nil {
		return err
	}
	return g.Load(ctx)
}

func (g *Registry) Update(ctx context.Context, c *Currency) error {
	if err := g.repo.Update(ctx, c); err != nil {
		return err
	}
	g.put(c)
	return nil
}

func (g *Registry) GetByIdentifier(identifier string) (*Currency, bool) {
	g.mu.RLock()
	c, ok := g.byIdentifier[strings.ToLower(identifier)]
	g.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return copyOf(c), true
}

func (g *Registry) GetByID(id uint) (*Currency, bool) {
	g.mu.RLock()
	c, ok := g.byID[id]
	g.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return copyOf(c), true
}

func (g *Registry) GetPrimary() (*Currency, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.byID {
		if c.IsPrimary {
			return copyOf(c), true
		}
	}
	return nil, false
}

func (g *Registry) ListActive() []Currency {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Currency, 0, len(g.byID))
	for _, c := range g.byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (g *Registry) ListEnabled() []Currency {
	out := g.ListActive()
	enabled := out[:0]
	for _, c := range out {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	return enabled
}

func (g *Registry) ListIdentifiersEnabled() []string {
	list := g.ListEnabled()
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Identifier)
	}
	return out
}

func (g *Registry) put(c *Currency) {
	cp := *c
	g.mu.Lock()
	g.byIdentifier[strings.ToLower(cp.Identifier)] = &cp
	g.byID[cp.ID] = &cp
	g.mu.Unlock()
}

func (g *Registry) remove(c *Currency) {
	g.mu.Lock()
	delete(g.byIdentifier, strings.ToLower(c.Identifier))
	delete(g.byID, c.ID)
	g.mu.Unlock()
}

func copyOf(c *Currency) *Currency {
	cp := *c
	return &cp
}
