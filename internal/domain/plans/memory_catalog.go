package plans

import (
	"context"
	"sync"
)

// MemoryCatalog is an in-memory plan catalog for development and tests.
type MemoryCatalog struct {
	mu     sync.RWMutex
	plans  map[uint]*Plan
	nextID uint
}

func NewMemoryCatalog(seed ...Plan) *MemoryCatalog {
	m := &MemoryCatalog{plans: make(map[uint]*Plan)}
	for i := range seed {
		_, _ = m.Upsert(context.Background(), &seed[i])
	}
	return m
}

func (m *MemoryCatalog) GetByName(_ context.Context, name string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = NormalizeName(name)
	for _, p := range m.plans {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errPlanNotFound("catalog.get_by_name")
}

func (m *MemoryCatalog) GetByID(_ context.Context, id uint) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[id]
	if !ok {
		return nil, errPlanNotFound("catalog.get_by_id")
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryCatalog) GetByExternalPriceRef(_ context.Context, ref string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ref == "" {
		return nil, errPlanNotFound("catalog.get_by_price")
	}
	for _, p := range m.plans {
		if p.PriceRef() == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errPlanNotFound("catalog.get_by_price")
}

func (m *MemoryCatalog) List(_ context.Context) ([]Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, *p)
	}
	sortPlans(out)
	return out, nil
}

// Upsert matches on name, assigning an id to new plans.
func (m *MemoryCatalog) Upsert(_ context.Context, p *Plan) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.Name = NormalizeName(p.Name)
	for id, existing := range m.plans {
		if existing.Name == p.Name {
			p.ID = id
			cp := *p
			m.plans[id] = &cp
			return false, nil
		}
	}
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.plans[p.ID] = &cp
	return true, nil
}

var _ Catalog = (*MemoryCatalog)(nil)
