package statestore

import "sync"

// Memory is an in-process Store implementation used as a test double
// for the sqlite repository.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[string]map[string]string)}
}

func (m *Memory) SetField(key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[key]
	if !ok {
		row = make(map[string]string)
		m.rows[key] = row
	}
	row[field] = value

	return nil
}

func (m *Memory) SetFields(key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[key]
	if !ok {
		row = make(map[string]string, len(fields))
		m.rows[key] = row
	}
	for field, value := range fields {
		row[field] = value
	}

	return nil
}

func (m *Memory) GetField(key, field string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[key]
	if !ok {
		return "", false, nil
	}
	value, ok := row[field]

	return value, ok, nil
}

func (m *Memory) Fields(key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fields := make(map[string]string, len(m.rows[key]))
	for field, value := range m.rows[key] {
		fields[field] = value
	}

	return fields, nil
}

func (m *Memory) DeleteKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rows, key)

	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Keys returns all row keys currently stored, for test assertions.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.rows))
	for key := range m.rows {
		keys = append(keys, key)
	}

	return keys
}
