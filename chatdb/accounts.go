package chatdb

import (
	"database/sql"
	"fmt"
	"regexp"
)

// CreateAccount inserts a new account in the logged-out state.
// Returns ErrDuplicateUsername if the username is taken; the existing
// account is left untouched.
func (s *Store) CreateAccount(username, password string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var existing string
	err := s.db.QueryRow(`SELECT username FROM accounts WHERE username = ?`, username).Scan(&existing)
	if err == nil {
		return ErrDuplicateUsername
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("account lookup failed: %w", err)
	}

	// passwords are stored and compared verbatim: backups receive the
	// identical propagated payload, so the row must match byte for byte
	_, err = s.db.Exec(`INSERT INTO accounts VALUES (?, ?, ?)`, username, password, StatusLoggedOut)
	if err != nil {
		return fmt.Errorf("account insert failed: %w", err)
	}
	return nil
}

// DeleteAccount removes the account matching both username and password.
// Returns ErrNotFound when no row matches. Any listener stream for the
// account is woken so it can terminate.
func (s *Store) DeleteAccount(username, password string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	res, err := s.db.Exec(`DELETE FROM accounts WHERE username = ? AND password = ?`, username, password)
	if err != nil {
		return fmt.Errorf("account delete failed: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("account delete failed: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	s.wake.Broadcast()
	return nil
}

// Login flips the account to the logged-in state. The transition is a
// compare-and-set on the status column so two racing logins cannot both
// succeed: the second one observes status already set and gets
// ErrAlreadyLoggedIn.
func (s *Store) Login(username, password string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var stored string
	err := s.db.QueryRow(`SELECT password FROM accounts WHERE username = ?`, username).Scan(&stored)
	if err == sql.ErrNoRows {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("account lookup failed: %w", err)
	}
	if stored != password {
		return ErrBadPassword
	}

	res, err := s.db.Exec(`UPDATE accounts SET status = ? WHERE username = ? AND status = ?`,
		StatusLoggedIn, username, StatusLoggedOut)
	if err != nil {
		return fmt.Errorf("login update failed: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("login update failed: %w", err)
	}
	if updated == 0 {
		return ErrAlreadyLoggedIn
	}
	return nil
}

// Logout flips the account to the logged-out state and wakes its
// listener so the message stream ends promptly. Logging out an unknown
// or already logged-out user is not an error.
func (s *Store) Logout(username string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.Exec(`UPDATE accounts SET status = ? WHERE username = ?`, StatusLoggedOut, username)
	if err != nil {
		return fmt.Errorf("logout update failed: %w", err)
	}

	s.wake.Broadcast()
	return nil
}

// ListAccounts returns the usernames matching the regex pattern, in
// storage (insertion) order. The filter runs in Go over all rows, the
// way account search has always behaved.
func (s *Store) ListAccounts(pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	rows, err := s.db.Query(`SELECT username FROM accounts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("account scan failed: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("account scan failed: %w", err)
		}
		if re.FindStringIndex(username) != nil {
			matches = append(matches, username)
		}
	}
	return matches, rows.Err()
}

// loggedIn reports the current status of username. Callers hold s.mutex.
func (s *Store) loggedIn(username string) (bool, error) {
	var status int
	err := s.db.QueryRow(`SELECT status FROM accounts WHERE username = ?`, username).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("status lookup failed: %w", err)
	}
	return status == StatusLoggedIn, nil
}
