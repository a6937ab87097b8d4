// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package analytics records page visits and contact-form activity in a
// local SQLite database.
//
// Visitors are identified by a salted hash of their IP so the database
// never holds raw addresses.
package analytics

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store is the analytics database. Safe for concurrent use through the
// underlying sql.DB.
type Store struct {
	conn *sql.DB
	salt string
}

// Visit is one recorded page view.
type Visit struct {
	Page      string    `json:"page"`
	Referrer  string    `json:"referrer,omitempty"`
	Visitor   string    `json:"visitor"`
	VisitedAt time.Time `json:"visited_at"`
}

// PageCount pairs a page with its visit total.
type PageCount struct {
	Page   string `json:"page"`
	Visits int    `json:"visits"`
}

// Open opens (creating if needed) the analytics database at path.
// salt is mixed into visitor hashes; changing it resets visitor identity.
func Open(path, salt string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{conn: conn, salt: salt}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// VisitorID hashes an IP with the store salt.
func (s *Store) VisitorID(ip string) string {
	h := sha256.Sum256([]byte(s.salt + ip))
	return hex.EncodeToString(h[:8])
}

// RecordVisit stores one page view. ip is hashed before storage.
func (s *Store) RecordVisit(ctx context.Context, page, referrer, ip string) error {
	_, err := s.conn.ExecContext(
		ctx,
		`INSERT INTO visits (visited_at, page, referrer, visitor) VALUES (?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		page,
		referrer,
		s.VisitorID(ip),
	)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

// VisitCount returns the total number of recorded visits.
func (s *Store) VisitCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}
	return n, nil
}

// VisitorCount returns the number of distinct visitors.
func (s *Store) VisitorCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(DISTINCT visitor) FROM visits`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count visitors: %w", err)
	}
	return n, nil
}

// TopPages returns the most visited pages, descending, up to limit.
func (s *Store) TopPages(ctx context.Context, limit int) ([]PageCount, error) {
	rows, err := s.conn.QueryContext(
		ctx,
		`SELECT page, COUNT(*) AS visits FROM visits GROUP BY page ORDER BY visits DESC, page ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top pages: %w", err)
	}
	defer rows.Close()

	var out []PageCount
	for rows.Next() {
		var pc PageCount
		if err := rows.Scan(&pc.Page, &pc.Visits); err != nil {
			return nil, fmt.Errorf("scan page count: %w", err)
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// LogContact records the outcome of a contact-form submission.
func (s *Store) LogContact(ctx context.Context, email, subject string, accepted bool) error {
	acceptedInt := 0
	if accepted {
		acceptedInt = 1
	}
	_, err := s.conn.ExecContext(
		ctx,
		`INSERT INTO contact_log (sent_at, email, subject, accepted) VALUES (?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		email,
		subject,
		acceptedInt,
	)
	if err != nil {
		return fmt.Errorf("insert contact log: %w", err)
	}
	return nil
}

// ContactCount returns how many submissions were accepted.
func (s *Store) ContactCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_log WHERE accepted = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}
