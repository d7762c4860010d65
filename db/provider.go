package db

// DatabaseProvider is the key-value surface the chain store runs on.
// Implementations must be safe for concurrent use; Get returns nil, not
// an error, for absent keys.
type DatabaseProvider interface {
	// Get reads the value stored under key, nil when absent
	Get(key []byte) ([]byte, error)

	// Put writes a key-value pair, replacing any existing value
	Put(key, value []byte) error

	// Delete removes key; deleting an absent key is not an error
	Delete(key []byte) error

	// Has reports whether key exists
	Has(key []byte) (bool, error)

	// Batch starts a new atomic write batch
	Batch() DatabaseBatch

	// Close releases the underlying database
	Close() error
}

// DatabaseBatch stages writes that Write applies atomically. A batch is
// single-use; Close releases it whether or not it was written.
type DatabaseBatch interface {
	Put(key, value []byte)
	Delete(key []byte)

	// Write applies every staged operation or none of them
	Write() error

	// Reset drops the staged operations
	Reset()

	Close()
}

// IterableProvider is implemented by backends that can walk keys with a
// given prefix in ascending order. The callback returns false to stop
// early.
type IterableProvider interface {
	DatabaseProvider

	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}
