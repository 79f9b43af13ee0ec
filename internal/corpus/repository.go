package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/refcheck/refcheck/internal/tracing"
)

// SourceRepository defines data operations for the trusted-source corpus.
// The corpus is append-only; there is no update or delete path.
type SourceRepository interface {
	// Add inserts a new trusted source, generating an ID when absent.
	// Returns ErrDuplicateURL when the URL is already catalogued.
	Add(ctx context.Context, source *TrustedSource) error

	// ListWithEmbeddings returns all sources that carry an embedding,
	// in insertion order. Sources whose stored vector cannot be decoded
	// are returned with a nil embedding rather than failing the listing.
	ListWithEmbeddings(ctx context.Context) ([]*TrustedSource, error)

	// Count returns the number of catalogued sources.
	Count(ctx context.Context) (int, error)
}

// InMemorySourceRepository is a map-backed SourceRepository for tests and
// development. Thread-safe.
type InMemorySourceRepository struct {
	mu      sync.RWMutex
	sources []*TrustedSource
	byURL   map[string]*TrustedSource
}

// NewInMemorySourceRepository creates an empty in-memory corpus.
func NewInMemorySourceRepository() *InMemorySourceRepository {
	return &InMemorySourceRepository{
		byURL: make(map[string]*TrustedSource),
	}
}

// Add inserts a source, preserving insertion order for stable tie-breaking.
func (r *InMemorySourceRepository) Add(ctx context.Context, source *TrustedSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byURL[source.URL]; exists {
		return ErrDuplicateURL
	}
	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now().UTC()
	}

	r.sources = append(r.sources, source)
	r.byURL[source.URL] = source
	return nil
}

// ListWithEmbeddings returns sources that have a non-empty embedding.
func (r *InMemorySourceRepository) ListWithEmbeddings(ctx context.Context) ([]*TrustedSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*TrustedSource, 0, len(r.sources))
	for _, src := range r.sources {
		if len(src.Embedding) == 0 {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

// Count returns the number of stored sources.
func (r *InMemorySourceRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources), nil
}

// PostgresSourceRepository implements SourceRepository on PostgreSQL.
// Embeddings are stored as JSON text; rows with corrupt vectors are
// surfaced with a nil embedding so the index can skip them per-row.
type PostgresSourceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSourceRepository creates a new PostgresSourceRepository.
func NewPostgresSourceRepository(db *sql.DB, logger *slog.Logger) *PostgresSourceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSourceRepository{db: db, logger: logger}
}

// Add inserts a new trusted source row.
func (r *PostgresSourceRepository) Add(ctx context.Context, source *TrustedSource) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "trusted_sources", tracing.DBOperationInsert)
	var err error
	defer func() { endSpan(err) }()

	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now().UTC()
	}

	var embeddingJSON any
	if len(source.Embedding) > 0 {
		data, merr := json.Marshal(source.Embedding)
		if merr != nil {
			err = fmt.Errorf("encode embedding: %w", merr)
			return err
		}
		embeddingJSON = string(data)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO trusted_sources (id, url, title, content_text, embedding, domain, credibility_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO NOTHING`,
		source.ID, source.URL, source.Title, source.ContentText,
		embeddingJSON, source.Domain, source.CredibilityScore, source.CreatedAt,
	)
	if err != nil {
		err = fmt.Errorf("insert trusted source: %w", err)
		return err
	}
	rows, raErr := res.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("insert trusted source: %w", raErr)
		return err
	}
	if rows == 0 {
		err = ErrDuplicateURL
		return err
	}
	return nil
}

// ListWithEmbeddings returns all sources carrying an embedding column,
// ordered by insertion time for stable similarity tie-breaking.
func (r *PostgresSourceRepository) ListWithEmbeddings(ctx context.Context) ([]*TrustedSource, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "trusted_sources", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, url, title, COALESCE(content_text, ''), embedding,
		       COALESCE(domain, ''), COALESCE(credibility_score, 0), created_at
		FROM trusted_sources
		WHERE embedding IS NOT NULL
		ORDER BY created_at, id`)
	if err != nil {
		err = fmt.Errorf("query trusted sources: %w", err)
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			r.logger.Warn("failed to close trusted source rows", slog.String("error", cerr.Error()))
		}
	}()

	var sources []*TrustedSource
	for rows.Next() {
		src := &TrustedSource{}
		var embeddingJSON sql.NullString
		if err = rows.Scan(&src.ID, &src.URL, &src.Title, &src.ContentText,
			&embeddingJSON, &src.Domain, &src.CredibilityScore, &src.CreatedAt); err != nil {
			err = fmt.Errorf("scan trusted source: %w", err)
			return nil, err
		}

		if embeddingJSON.Valid {
			if uerr := json.Unmarshal([]byte(embeddingJSON.String), &src.Embedding); uerr != nil {
				// Corrupt vector: keep the row with a nil embedding so the
				// index skips it instead of the whole query failing.
				r.logger.Warn("skipping corrupt embedding",
					slog.String("source_id", src.ID),
					slog.String("error", uerr.Error()))
				src.Embedding = nil
			}
		}
		sources = append(sources, src)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterate trusted sources: %w", err)
		return nil, err
	}
	return sources, nil
}

// Count returns the number of catalogued sources.
func (r *PostgresSourceRepository) Count(ctx context.Context) (int, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "trusted_sources", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	var count int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trusted_sources`).Scan(&count)
	if err != nil {
		err = fmt.Errorf("count trusted sources: %w", err)
		return 0, err
	}
	return count, nil
}
