package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/docuvault/dbopen"
)

// InsertSearch appends a query record to the history.
func (s *Store) InsertSearch(ctx context.Context, sr *Search) error {
	if sr.CreatedAt == 0 {
		sr.CreatedAt = time.Now().UnixMilli()
	}
	if sr.DocumentIDsJSON == "" {
		sr.DocumentIDsJSON = "[]"
	}

	res, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO search_history (question, answer, persona, document_ids_json,
		duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sr.Question, sr.Answer, sr.Persona, sr.DocumentIDsJSON,
		sr.DurationMs, sr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	sr.ID, err = res.LastInsertId()
	return err
}

// ListSearchHistory returns the most recent searches, newest first.
func (s *Store) ListSearchHistory(ctx context.Context, limit int) ([]*Search, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, question, answer, persona, document_ids_json, duration_ms, created_at
		FROM search_history ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Search
	for rows.Next() {
		var sr Search
		if err := rows.Scan(&sr.ID, &sr.Question, &sr.Answer, &sr.Persona,
			&sr.DocumentIDsJSON, &sr.DurationMs, &sr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		out = append(out, &sr)
	}
	return out, rows.Err()
}
