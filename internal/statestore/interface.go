package statestore

// Store is a table-oriented state store: row key -> field/value pairs.
// The monitor is the sole writer of its keys; a downstream observer
// reads them.
type Store interface {
	// SetField writes one field of a row, creating the row as needed.
	SetField(key, field, value string) error

	// SetFields writes several fields of one row atomically.
	SetFields(key string, fields map[string]string) error

	// GetField reads one field. The second return reports whether the
	// field exists.
	GetField(key, field string) (string, bool, error)

	// Fields returns all field/value pairs of a row. A missing row
	// yields an empty map.
	Fields(key string) (map[string]string, error)

	// DeleteKey removes a row and all its fields.
	DeleteKey(key string) error

	Close() error
}
