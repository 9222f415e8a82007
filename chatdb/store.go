// Package chatdb implements the durable per-replica chat state: accounts,
// the pending message mailbox and the delivered-message history. Every
// replica process owns exactly one Store; replicas never share a database,
// cross-replica convergence happens through propagated RPCs only.
package chatdb

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	StatusLoggedOut = 0
	StatusLoggedIn  = 1
)

// Message is one mailbox or history row.
type Message struct {
	Source      string
	Destination string
	Text        string
}

// Store wraps the sqlite database behind a single store-wide lock.
// The lock is coarse on purpose: expected concurrency is modest and the
// login status transition must be atomic with respect to mailbox claims.
// wake is signalled whenever pending messages or login status change, so
// blocked NextBatch callers re-check their condition.
type Store struct {
	db     *sql.DB
	mutex  sync.Mutex
	wake   *sync.Cond
	closed bool
}

// Open creates or opens the replica database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %v: %w", path, err)
	}
	// one connection: the store lock already serializes access and a
	// second connection would only produce SQLITE_BUSY errors
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS accounts
		   (username TEXT UNIQUE, password TEXT, status INTEGER)`,
		`CREATE TABLE IF NOT EXISTS messages
		   (id INTEGER PRIMARY KEY AUTOINCREMENT,
		    source TEXT, destination TEXT, text TEXT)`,
		`CREATE TABLE IF NOT EXISTS history
		   (source TEXT, destination TEXT, text TEXT)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s := &Store{db: db}
	s.wake = sync.NewCond(&s.mutex)
	logrus.Infof("Store opened at %s", path)
	return s, nil
}

// Close releases the database and unblocks every waiting listener.
func (s *Store) Close() error {
	s.mutex.Lock()
	s.closed = true
	s.wake.Broadcast()
	s.mutex.Unlock()
	return s.db.Close()
}
