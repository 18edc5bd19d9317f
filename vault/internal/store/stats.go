package store

import "context"

// GetStats returns document counts by status and type plus the search total.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		ByStatus: map[string]int{},
		ByType:   map[string]int{},
	}

	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&st.Total); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		st.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trows, err := s.DB.QueryContext(ctx,
		`SELECT document_type, COUNT(*) FROM documents WHERE document_type != '' GROUP BY document_type`)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var typ string
		var n int
		if err := trows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		st.ByType[typ] = n
	}
	if err := trows.Err(); err != nil {
		return nil, err
	}

	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_history`).Scan(&st.Searches); err != nil {
		return nil, err
	}
	return st, nil
}
