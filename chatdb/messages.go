package chatdb

import (
	"database/sql"
	"fmt"
)

// SendMessage enqueues a message in the destination mailbox. The sender
// must be logged in on this store and the destination must exist. A
// blocked listener for the destination is woken.
func (s *Store) SendMessage(source, destination, text string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	active, err := s.loggedIn(source)
	if err != nil {
		return err
	}
	if !active {
		return ErrSenderNotLoggedIn
	}

	var existing string
	err = s.db.QueryRow(`SELECT username FROM accounts WHERE username = ?`, destination).Scan(&existing)
	if err == sql.ErrNoRows {
		return ErrUnknownDestination
	}
	if err != nil {
		return fmt.Errorf("destination lookup failed: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO messages (source, destination, text) VALUES (?, ?, ?)`,
		source, destination, text)
	if err != nil {
		return fmt.Errorf("message insert failed: %w", err)
	}

	s.wake.Broadcast()
	return nil
}

// NextBatch blocks until the destination account has pending messages,
// then claims them: the rows are removed from the mailbox and appended
// to history before they are returned, so no message is ever handed out
// twice from this store even with concurrent listeners. The call
// returns active=false once the account is no longer logged in (logout,
// deletion) or the store is closed, which ends the caller's stream.
func (s *Store) NextBatch(destination string) ([]Message, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for {
		if s.closed {
			return nil, false, nil
		}

		active, err := s.loggedIn(destination)
		if err != nil {
			return nil, false, err
		}
		if !active {
			return nil, false, nil
		}

		batch, err := s.claimPending(destination)
		if err != nil {
			return nil, false, err
		}
		if len(batch) > 0 {
			return batch, true, nil
		}

		s.wake.Wait()
	}
}

// claimPending moves every pending message for destination to history
// and returns them in FIFO order. Callers hold s.mutex.
func (s *Store) claimPending(destination string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, source, destination, text FROM messages WHERE destination = ? ORDER BY id`,
		destination)
	if err != nil {
		return nil, fmt.Errorf("mailbox scan failed: %w", err)
	}

	var ids []int64
	var batch []Message
	for rows.Next() {
		var id int64
		var m Message
		if err := rows.Scan(&id, &m.Source, &m.Destination, &m.Text); err != nil {
			rows.Close()
			return nil, fmt.Errorf("mailbox scan failed: %w", err)
		}
		ids = append(ids, id)
		batch = append(batch, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("mailbox scan failed: %w", err)
	}
	rows.Close()

	if len(batch) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("mailbox claim failed: %w", err)
	}
	for i, m := range batch {
		if _, err := tx.Exec(`DELETE FROM messages WHERE id = ?`, ids[i]); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("mailbox claim failed: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO history (source, destination, text) VALUES (?, ?, ?)`,
			m.Source, m.Destination, m.Text); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("mailbox claim failed: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("mailbox claim failed: %w", err)
	}
	return batch, nil
}

// PendingCount reports how many undelivered messages destination has.
func (s *Store) PendingCount(destination string) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE destination = ?`, destination).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("mailbox count failed: %w", err)
	}
	return n, nil
}

// History returns every message delivered to destination, oldest first.
func (s *Store) History(destination string) ([]Message, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rows, err := s.db.Query(
		`SELECT source, destination, text FROM history WHERE destination = ? ORDER BY rowid`,
		destination)
	if err != nil {
		return nil, fmt.Errorf("history scan failed: %w", err)
	}
	defer rows.Close()

	var delivered []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Source, &m.Destination, &m.Text); err != nil {
			return nil, fmt.Errorf("history scan failed: %w", err)
		}
		delivered = append(delivered, m)
	}
	return delivered, rows.Err()
}
