package store

import "database/sql"

// Schema is the complete vault schema.
const Schema = `
-- Uploaded documents and everything derived from them
CREATE TABLE IF NOT EXISTS documents (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    filename          TEXT NOT NULL,
    original_filename TEXT NOT NULL,
    file_path         TEXT NOT NULL,
    file_size         INTEGER NOT NULL DEFAULT 0,
    file_type         TEXT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'processing',
    uploaded_at       INTEGER NOT NULL,
    processed_at      INTEGER NOT NULL DEFAULT 0,
    ocr_text          TEXT NOT NULL DEFAULT '',
    ocr_confidence    REAL NOT NULL DEFAULT 0,
    ocr_duration_ms   INTEGER NOT NULL DEFAULT 0,
    document_type     TEXT NOT NULL DEFAULT '',
    extracted_json    TEXT NOT NULL DEFAULT '',
    llm_model         TEXT NOT NULL DEFAULT '',
    llm_duration_ms   INTEGER NOT NULL DEFAULT 0,
    tags_json         TEXT NOT NULL DEFAULT '[]',
    notes             TEXT NOT NULL DEFAULT '',
    archived          INTEGER NOT NULL DEFAULT 0,
    error             TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status, uploaded_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(document_type);

-- Natural-language query history (append-only)
CREATE TABLE IF NOT EXISTS search_history (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    question          TEXT NOT NULL,
    answer            TEXT NOT NULL,
    persona           TEXT NOT NULL,
    document_ids_json TEXT NOT NULL DEFAULT '[]',
    duration_ms       INTEGER NOT NULL DEFAULT 0,
    created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_history_time ON search_history(created_at DESC);
`

// ApplySchema creates all tables and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
