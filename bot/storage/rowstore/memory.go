package rowstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory Store and Creator used in tests and development.
type Memory struct {
	mu      sync.RWMutex
	rows    map[string][]Row
	headers map[string][]string
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rows:    make(map[string][]Row),
		headers: make(map[string][]string),
	}
}

// NewMemoryWithSheets constructs a store with the named empty sheets.
func NewMemoryWithSheets(names ...string) *Memory {
	m := NewMemory()
	for _, name := range names {
		m.rows[name] = nil
		m.headers[name] = nil
	}
	return m
}

// CreateSheet registers a new sheet with the given header.
func (m *Memory) CreateSheet(_ context.Context, name string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[name]; ok {
		return fmt.Errorf("%w: %s", ErrSheetExists, name)
	}
	m.rows[name] = nil
	m.headers[name] = append([]string(nil), header...)
	return nil
}

// Header returns the header of a sheet, mainly for tests.
func (m *Memory) Header(name string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.headers[name]
	return h, ok
}

func (m *Memory) sheet(name string) ([]Row, error) {
	rows, ok := m.rows[name]
	if !ok {
		return nil, fmt.Errorf("%w: sheet %s", ErrNotFound, name)
	}
	return rows, nil
}

// GetRow returns the row with the given key.
func (m *Memory) GetRow(_ context.Context, sheet, key string) (Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, err := m.sheet(sheet)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.Key() == key {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: row %s", ErrNotFound, key)
}

// AddRow inserts or replaces the row keyed by its first cell.
func (m *Memory) AddRow(_ context.Context, sheet string, row Row) error {
	if row.Key() == "" {
		return fmt.Errorf("rowstore: empty row key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if r.Key() == row.Key() {
			m.rows[sheet][i] = row.Clone()
			return nil
		}
	}
	m.rows[sheet] = append(m.rows[sheet], row.Clone())
	return nil
}

// RemoveRow deletes the row with the given key.
func (m *Memory) RemoveRow(_ context.Context, sheet, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if r.Key() == key {
			m.rows[sheet] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// BatchUpdate writes values into one column for many keys.
func (m *Memory) BatchUpdate(_ context.Context, sheet string, column int, values map[string]string) error {
	if column <= 0 {
		return fmt.Errorf("rowstore: column must be positive, got %d", column)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	for i, r := range rows {
		val, ok := values[r.Key()]
		if !ok {
			continue
		}
		row := r.Clone()
		for len(row) <= column {
			row = append(row, "")
		}
		row[column] = val
		m.rows[sheet][i] = row
	}
	return nil
}

// ListKeys returns all row keys in insertion order.
func (m *Memory) ListKeys(_ context.Context, sheet string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, err := m.sheet(sheet)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.Key())
	}
	return keys, nil
}

// ListRows returns all rows in insertion order.
func (m *Memory) ListRows(_ context.Context, sheet string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, err := m.sheet(sheet)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Clone())
	}
	return out, nil
}

var (
	_ Store   = (*Memory)(nil)
	_ Creator = (*Memory)(nil)
)
