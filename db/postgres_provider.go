package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
)

// PostgresProvider implements DatabaseProvider on a single key-value
// table, for deployments that already operate Postgres and want the
// chain data under the same backup and replication regime.
type PostgresProvider struct {
	once sync.Once
	db   *sql.DB
}

const postgresSchema = `CREATE TABLE IF NOT EXISTS mtl_kv (
	key   BYTEA PRIMARY KEY,
	value BYTEA NOT NULL
)`

// NewPostgresProvider connects with a lib/pq DSN and ensures the schema
func NewPostgresProvider(dsn string) (DatabaseProvider, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure postgres schema: %w", err)
	}
	return &PostgresProvider{db: db}, nil
}

func (p *PostgresProvider) Get(key []byte) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(`SELECT value FROM mtl_kv WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (p *PostgresProvider) Put(key, value []byte) error {
	_, err := p.db.Exec(
		`INSERT INTO mtl_kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

func (p *PostgresProvider) Delete(key []byte) error {
	_, err := p.db.Exec(`DELETE FROM mtl_kv WHERE key = $1`, key)
	return err
}

func (p *PostgresProvider) Has(key []byte) (bool, error) {
	var found bool
	err := p.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM mtl_kv WHERE key = $1)`, key).Scan(&found)
	return found, err
}

// Close closes the connection pool
func (p *PostgresProvider) Close() error {
	var err error
	p.once.Do(func() {
		err = p.db.Close()
	})
	return err
}

func (p *PostgresProvider) Batch() DatabaseBatch {
	return &postgresBatch{db: p.db}
}

// IteratePrefix scans forward from prefix in key order and stops at the
// first key outside it
func (p *PostgresProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	rows, err := p.db.Query(`SELECT key, value FROM mtl_kv WHERE key >= $1 ORDER BY key`, prefix)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		if !callback(key, value) {
			break
		}
	}
	return rows.Err()
}

type postgresBatch struct {
	db  *sql.DB
	ops []memoryOp
}

func (b *postgresBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memoryOp{key: key, value: value})
}

func (b *postgresBatch) Delete(key []byte) {
	b.ops = append(b.ops, memoryOp{key: key, delete: true})
}

// Write replays the ops in one transaction, rolling back on the first error
func (b *postgresBatch) Write() error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	for _, op := range b.ops {
		if op.delete {
			_, err = tx.Exec(`DELETE FROM mtl_kv WHERE key = $1`, op.key)
		} else {
			_, err = tx.Exec(
				`INSERT INTO mtl_kv (key, value) VALUES ($1, $2)
				 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, op.key, op.value)
		}
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (b *postgresBatch) Reset() {
	b.ops = nil
}

func (b *postgresBatch) Close() {
	b.ops = nil
}
