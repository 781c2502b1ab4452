package annotate

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ocrmate/ocrmate/internal/verify"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS annotations (
	id             TEXT PRIMARY KEY,
	document_path  TEXT NOT NULL UNIQUE,
	schema_version INTEGER NOT NULL,
	fields         TEXT NOT NULL,
	ocr_full_text  TEXT,
	is_complete    INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_annotations_schema_version ON annotations(schema_version);
CREATE INDEX IF NOT EXISTS idx_annotations_is_complete ON annotations(is_complete);

CREATE TABLE IF NOT EXISTS verifications (
	id            TEXT PRIMARY KEY,
	document_path TEXT NOT NULL UNIQUE,
	payload       TEXT NOT NULL,
	needs_review  INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_verifications_needs_review ON verifications(needs_review);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, doc *DocumentAnnotation) error {
	fieldsJSON, err := json.Marshal(doc.Annotations)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal annotations")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO annotations (id, document_path, schema_version, fields, ocr_full_text, is_complete, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (document_path) DO UPDATE SET
		   schema_version = excluded.schema_version,
		   fields = excluded.fields,
		   ocr_full_text = excluded.ocr_full_text,
		   is_complete = excluded.is_complete,
		   updated_at = excluded.updated_at`,
		uuid.New().String(), doc.DocumentPath, doc.SchemaVersion,
		string(fieldsJSON), doc.OCRFullText, boolToInt(doc.IsComplete), now, now,
	)
	return eris.Wrapf(err, "sqlite: save annotation %s", doc.DocumentPath)
}

func (s *SQLiteStore) Get(ctx context.Context, documentPath string) (*DocumentAnnotation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document_path, schema_version, fields, ocr_full_text, is_complete
		 FROM annotations WHERE document_path = ?`,
		documentPath,
	)
	return scanAnnotation(row)
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]DocumentAnnotation, error) {
	query := `SELECT document_path, schema_version, fields, ocr_full_text, is_complete
	          FROM annotations WHERE 1=1`
	var args []any

	if filter.SchemaVersion > 0 {
		query += ` AND schema_version = ?`
		args = append(args, filter.SchemaVersion)
	}
	if filter.CompleteOnly {
		query += ` AND is_complete = 1`
	}
	query += ` ORDER BY document_path`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list annotations")
	}
	defer rows.Close()

	var docs []DocumentAnnotation
	for rows.Next() {
		d, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list annotations iterate")
}

func (s *SQLiteStore) Delete(ctx context.Context, documentPath string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM annotations WHERE document_path = ?`,
		documentPath,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete annotation %s", documentPath)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("annotation not found: %s", documentPath)
	}
	return nil
}

func (s *SQLiteStore) SaveVerification(ctx context.Context, dv *verify.DocumentVerification) error {
	payload, err := json.Marshal(dv)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal verification")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verifications (id, document_path, payload, needs_review, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (document_path) DO UPDATE SET
		   payload = excluded.payload,
		   needs_review = excluded.needs_review,
		   updated_at = excluded.updated_at`,
		uuid.New().String(), dv.DocumentPath, string(payload),
		boolToInt(dv.NeedsHumanReview), now, now,
	)
	return eris.Wrapf(err, "sqlite: save verification %s", dv.DocumentPath)
}

func (s *SQLiteStore) GetVerification(ctx context.Context, documentPath string) (*verify.DocumentVerification, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM verifications WHERE document_path = ?`,
		documentPath,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("verification not found: %s", documentPath)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get verification %s", documentPath)
	}

	var dv verify.DocumentVerification
	if err := json.Unmarshal([]byte(payload), &dv); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal verification")
	}
	return &dv, nil
}

func (s *SQLiteStore) ListVerifications(ctx context.Context, filter VerificationFilter) ([]verify.DocumentVerification, error) {
	query := `SELECT payload FROM verifications WHERE 1=1`
	var args []any

	if filter.NeedsReviewOnly {
		query += ` AND needs_review = 1`
	}
	query += ` ORDER BY document_path`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list verifications")
	}
	defer rows.Close()

	var out []verify.DocumentVerification
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan verification")
		}
		var dv verify.DocumentVerification
		if err := json.Unmarshal([]byte(payload), &dv); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal verification")
		}
		out = append(out, dv)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list verifications iterate")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAnnotation(row scannable) (*DocumentAnnotation, error) {
	var d DocumentAnnotation
	var fieldsJSON string
	var fullText sql.NullString
	var complete int

	err := row.Scan(&d.DocumentPath, &d.SchemaVersion, &fieldsJSON, &fullText, &complete)
	if err == sql.ErrNoRows {
		return nil, eris.New("annotation not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan annotation")
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &d.Annotations); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal annotations")
	}
	d.OCRFullText = fullText.String
	d.IsComplete = complete != 0
	return &d, nil
}
