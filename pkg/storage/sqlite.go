package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lorenzo-12/quantas-link-delay/pkg/aggregator"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

const createTables = `
	CREATE TABLE IF NOT EXISTS summaries (
	  algorithm TEXT NOT NULL PRIMARY KEY,
	  confidence REAL NOT NULL,
	  body BLOB NOT NULL,
	  updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS intervals (
	  algorithm TEXT NOT NULL,
	  combination TEXT NOT NULL,
	  f INTEGER NOT NULL,
	  p INTEGER NOT NULL,
	  metric TEXT NOT NULL,
	  mean REAL NOT NULL,
	  lower REAL NOT NULL,
	  upper REAL NOT NULL,
	  PRIMARY KEY (algorithm, combination, f, p, metric)
	);
	CREATE TABLE IF NOT EXISTS gaps (
	  algorithm TEXT NOT NULL,
	  identity TEXT NOT NULL,
	  metric TEXT NOT NULL,
	  reason TEXT NOT NULL
	);`

// SQLiteStore archives summaries in a SQLite file: the full summary as JSON
// plus one queryable row per interval.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Printf("OpenSQLite: database error: %v\n", err)
		return nil, err
	}
	if _, err := db.Exec(createTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddSummary replaces everything stored for sum.Algorithm in one transaction.
func (s *SQLiteStore) AddSummary(sum *sweeptypes.Summary) (err error) {
	if sum == nil || !sum.Algorithm.Valid() {
		return sweeptypes.ErrUnknownAlgorithm
	}
	body, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	alg := string(sum.Algorithm)
	for _, table := range []string{"summaries", "intervals", "gaps"} {
		if _, err = tx.Exec("DELETE FROM "+table+" WHERE algorithm = ?", alg); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err = tx.Exec(
		"INSERT INTO summaries (algorithm, confidence, body, updated_at) VALUES (?, ?, ?, ?)",
		alg, sum.Confidence, body, time.Now().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO intervals (algorithm, combination, f, p, metric, mean, lower, upper) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range aggregator.Flatten(sum) {
		if _, err = stmt.Exec(alg, r.Combination, r.F, r.P, r.Metric, r.Mean, r.Lower, r.Upper); err != nil {
			return fmt.Errorf("insert interval: %w", err)
		}
	}
	for _, g := range sum.Gaps {
		if _, err = tx.Exec("INSERT INTO gaps (algorithm, identity, metric, reason) VALUES (?, ?, ?, ?)",
			alg, g.Identity.Key(), g.Metric, g.Reason); err != nil {
			return fmt.Errorf("insert gap: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetSummary(alg sweeptypes.Algorithm) (*sweeptypes.Summary, error) {
	var body []byte
	err := s.db.QueryRow("SELECT body FROM summaries WHERE algorithm = ?", string(alg)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sum sweeptypes.Summary
	if err := json.Unmarshal(body, &sum); err != nil {
		return nil, fmt.Errorf("decode summary %s: %w", alg, err)
	}
	return &sum, nil
}

func (s *SQLiteStore) GetAllSummaries() ([]*sweeptypes.Summary, error) {
	rows, err := s.db.Query("SELECT algorithm FROM summaries ORDER BY algorithm")
	if err != nil {
		return nil, err
	}
	var algs []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			rows.Close()
			return nil, err
		}
		algs = append(algs, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*sweeptypes.Summary, 0, len(algs))
	for _, a := range algs {
		sum, err := s.GetSummary(sweeptypes.Algorithm(a))
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

// Intervals returns the archived rows of one metric across algorithms,
// ordered for plotting.
func (s *SQLiteStore) Intervals(metric string) ([]aggregator.Row, error) {
	rows, err := s.db.Query(`SELECT algorithm, combination, f, p, mean, lower, upper
		FROM intervals WHERE metric = ? ORDER BY algorithm, combination, f, p DESC`, metric)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []aggregator.Row
	for rows.Next() {
		var (
			r   aggregator.Row
			alg string
		)
		if err := rows.Scan(&alg, &r.Combination, &r.F, &r.P, &r.Mean, &r.Lower, &r.Upper); err != nil {
			return nil, err
		}
		r.Algorithm = sweeptypes.Algorithm(alg)
		r.Metric = metric
		out = append(out, r)
	}
	return out, rows.Err()
}
