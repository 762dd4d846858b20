// Package pool manages read-only SQLite connections to partition files.
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ConnectionPool caches SQLite connections to downloaded partition files.
// Connections are reference counted; idle connections past their timeout
// are evicted to keep the total under the configured cap.
type ConnectionPool struct {
	mu sync.Mutex

	// connections maps partition paths to their connection entries
	connections map[string]*connectionEntry

	// maxConnections is the maximum total open connections
	maxConnections int

	// idleTimeout is how long a connection can be idle before eviction
	idleTimeout time.Duration

	closed bool
}

// connectionEntry holds a connection and its metadata.
type connectionEntry struct {
	db       *sql.DB
	path     string
	refCount int
	lastUsed time.Time
}

// Config holds configuration for the connection pool.
type Config struct {
	// MaxConnections is the maximum total connections (default: 32)
	MaxConnections int

	// IdleTimeout is how long a connection can be idle (default: 5 minutes)
	IdleTimeout time.Duration
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		MaxConnections: 32,
		IdleTimeout:    5 * time.Minute,
	}
}

// New creates a new connection pool with the given configuration.
func New(config Config) *ConnectionPool {
	if config.MaxConnections <= 0 {
		config.MaxConnections = 32
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 5 * time.Minute
	}

	return &ConnectionPool{
		connections:    make(map[string]*connectionEntry),
		maxConnections: config.MaxConnections,
		idleTimeout:    config.IdleTimeout,
	}
}

// Get retrieves or creates a connection for the given partition path.
// The caller must call Release when done with the connection.
func (p *ConnectionPool) Get(ctx context.Context, partitionPath string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("pool: connection pool is closed")
	}

	if entry, ok := p.connections[partitionPath]; ok {
		entry.refCount++
		entry.lastUsed = time.Now()
		return entry.db, nil
	}

	if len(p.connections) >= p.maxConnections {
		if !p.evictIdleConnection() {
			return nil, fmt.Errorf("pool: maximum connections reached (%d)", p.maxConnections)
		}
	}

	db, err := p.openConnection(ctx, partitionPath)
	if err != nil {
		return nil, err
	}

	p.connections[partitionPath] = &connectionEntry{
		db:       db,
		path:     partitionPath,
		refCount: 1,
		lastUsed: time.Now(),
	}

	return db, nil
}

// Release decrements the reference count for a connection.
func (p *ConnectionPool) Release(partitionPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.connections[partitionPath]; ok {
		entry.refCount--
		entry.lastUsed = time.Now()
	}
}

// openConnection opens a new SQLite connection in read-only mode.
func (p *ConnectionPool) openConnection(ctx context.Context, partitionPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_query_only=true", partitionPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("pool: failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(p.idleTimeout)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pool: failed to ping connection: %w", err)
	}

	return db, nil
}

// evictIdleConnection evicts the least recently used idle connection.
// Must be called with lock held. Returns true if one was evicted.
func (p *ConnectionPool) evictIdleConnection() bool {
	var oldestPath string
	var oldestTime time.Time

	for path, entry := range p.connections {
		if entry.refCount == 0 {
			if oldestPath == "" || entry.lastUsed.Before(oldestTime) {
				oldestPath = path
				oldestTime = entry.lastUsed
			}
		}
	}

	if oldestPath != "" {
		p.connections[oldestPath].db.Close()
		delete(p.connections, oldestPath)
		return true
	}

	return false
}

// Close closes all connections in the pool. Idempotent.
func (p *ConnectionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var lastErr error
	for path, entry := range p.connections {
		if err := entry.db.Close(); err != nil {
			lastErr = err
		}
		delete(p.connections, path)
	}

	return lastErr
}
