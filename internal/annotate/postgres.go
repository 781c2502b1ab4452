package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ocrmate/ocrmate/internal/verify"
)

// Pool is the subset of pgxpool.Pool the store uses, small enough to be
// satisfied by pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS annotations (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	document_path  TEXT NOT NULL UNIQUE,
	schema_version INTEGER NOT NULL,
	fields         JSONB NOT NULL,
	ocr_full_text  TEXT,
	is_complete    BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_annotations_schema_version ON annotations(schema_version);
CREATE INDEX IF NOT EXISTS idx_annotations_is_complete ON annotations(is_complete);

CREATE TABLE IF NOT EXISTS verifications (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	document_path TEXT NOT NULL UNIQUE,
	payload       JSONB NOT NULL,
	needs_review  BOOLEAN NOT NULL DEFAULT false,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_verifications_needs_review ON verifications(needs_review);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, doc *DocumentAnnotation) error {
	fieldsJSON, err := json.Marshal(doc.Annotations)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal annotations")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO annotations (id, document_path, schema_version, fields, ocr_full_text, is_complete, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (document_path) DO UPDATE SET
		   schema_version = $3, fields = $4, ocr_full_text = $5, is_complete = $6, updated_at = $8`,
		uuid.New().String(), doc.DocumentPath, doc.SchemaVersion,
		fieldsJSON, doc.OCRFullText, doc.IsComplete, now, now,
	)
	return eris.Wrapf(err, "postgres: save annotation %s", doc.DocumentPath)
}

func (s *PostgresStore) Get(ctx context.Context, documentPath string) (*DocumentAnnotation, error) {
	var d DocumentAnnotation
	var fieldsJSON []byte
	var fullText *string

	err := s.pool.QueryRow(ctx,
		`SELECT document_path, schema_version, fields, ocr_full_text, is_complete
		 FROM annotations WHERE document_path = $1`,
		documentPath,
	).Scan(&d.DocumentPath, &d.SchemaVersion, &fieldsJSON, &fullText, &d.IsComplete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("annotation not found: %s", documentPath)
		}
		return nil, eris.Wrapf(err, "postgres: get annotation %s", documentPath)
	}

	if err := json.Unmarshal(fieldsJSON, &d.Annotations); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal annotations")
	}
	if fullText != nil {
		d.OCRFullText = *fullText
	}
	return &d, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]DocumentAnnotation, error) {
	query := `SELECT document_path, schema_version, fields, ocr_full_text, is_complete
	          FROM annotations WHERE true`
	args := []any{}
	argIdx := 1

	if filter.SchemaVersion > 0 {
		query += fmt.Sprintf(` AND schema_version = $%d`, argIdx)
		args = append(args, filter.SchemaVersion)
		argIdx++
	}
	if filter.CompleteOnly {
		query += ` AND is_complete`
	}
	query += ` ORDER BY document_path`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list annotations")
	}
	defer rows.Close()

	var docs []DocumentAnnotation
	for rows.Next() {
		var d DocumentAnnotation
		var fieldsJSON []byte
		var fullText *string

		if err := rows.Scan(&d.DocumentPath, &d.SchemaVersion, &fieldsJSON, &fullText, &d.IsComplete); err != nil {
			return nil, eris.Wrap(err, "postgres: scan annotation")
		}
		if err := json.Unmarshal(fieldsJSON, &d.Annotations); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal annotations")
		}
		if fullText != nil {
			d.OCRFullText = *fullText
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list annotations iterate")
}

func (s *PostgresStore) SaveVerification(ctx context.Context, dv *verify.DocumentVerification) error {
	payload, err := json.Marshal(dv)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal verification")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO verifications (id, document_path, payload, needs_review, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (document_path) DO UPDATE SET
		   payload = $3, needs_review = $4, updated_at = $6`,
		uuid.New().String(), dv.DocumentPath, payload, dv.NeedsHumanReview, now, now,
	)
	return eris.Wrapf(err, "postgres: save verification %s", dv.DocumentPath)
}

func (s *PostgresStore) GetVerification(ctx context.Context, documentPath string) (*verify.DocumentVerification, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM verifications WHERE document_path = $1`,
		documentPath,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("verification not found: %s", documentPath)
		}
		return nil, eris.Wrapf(err, "postgres: get verification %s", documentPath)
	}

	var dv verify.DocumentVerification
	if err := json.Unmarshal(payload, &dv); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal verification")
	}
	return &dv, nil
}

func (s *PostgresStore) ListVerifications(ctx context.Context, filter VerificationFilter) ([]verify.DocumentVerification, error) {
	query := `SELECT payload FROM verifications WHERE true`
	args := []any{}
	argIdx := 1

	if filter.NeedsReviewOnly {
		query += ` AND needs_review`
	}
	query += ` ORDER BY document_path`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list verifications")
	}
	defer rows.Close()

	var out []verify.DocumentVerification
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan verification")
		}
		var dv verify.DocumentVerification
		if err := json.Unmarshal(payload, &dv); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal verification")
		}
		out = append(out, dv)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list verifications iterate")
}

func (s *PostgresStore) Delete(ctx context.Context, documentPath string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM annotations WHERE document_path = $1`,
		documentPath,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete annotation %s", documentPath)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("annotation not found: %s", documentPath)
	}
	return nil
}
