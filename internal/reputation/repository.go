package reputation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/refcheck/refcheck/internal/tracing"
)

// Repository defines data operations for domain reputation records.
type Repository interface {
	// GetByDomain returns the record for an exact domain match.
	// Returns ErrRecordNotFound when the domain is not catalogued.
	GetByDomain(ctx context.Context, domain string) (*Record, error)

	// Upsert inserts or updates a record keyed by domain. Used by seeding.
	Upsert(ctx context.Context, record *Record) error

	// Count returns the number of catalogued domains.
	Count(ctx context.Context) (int, error)
}

// InMemoryRepository is a map-backed Repository for tests and development.
// Thread-safe.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryRepository creates an empty in-memory reputation store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*Record)}
}

// GetByDomain returns the record for an exact domain match.
func (r *InMemoryRepository) GetByDomain(ctx context.Context, domain string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[strings.ToLower(domain)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

// Upsert inserts or replaces a record keyed by its domain.
func (r *InMemoryRepository) Upsert(ctx context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	cp := *record
	r.records[strings.ToLower(record.Domain)] = &cp
	return nil
}

// Count returns the number of catalogued domains.
func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// GetByDomain returns the record for an exact domain match.
func (r *PostgresRepository) GetByDomain(ctx context.Context, domain string) (*Record, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "domain_reputation", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rec := &Record{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, domain, category, base_score, verified, created_at, updated_at
		FROM domain_reputation
		WHERE domain = $1`,
		strings.ToLower(domain),
	).Scan(&rec.ID, &rec.Domain, &rec.Category, &rec.BaseScore, &rec.Verified, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrRecordNotFound
	}
	if err != nil {
		err = fmt.Errorf("query domain reputation: %w", err)
		return nil, err
	}
	return rec, nil
}

// Upsert inserts or updates a record keyed by domain.
func (r *PostgresRepository) Upsert(ctx context.Context, record *Record) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "domain_reputation", tracing.DBOperationInsert)
	var err error
	defer func() { endSpan(err) }()

	if err = record.Validate(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO domain_reputation (id, domain, category, base_score, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (domain) DO UPDATE SET
			category = EXCLUDED.category,
			base_score = EXCLUDED.base_score,
			verified = EXCLUDED.verified,
			updated_at = EXCLUDED.updated_at`,
		record.ID, strings.ToLower(record.Domain), record.Category, record.BaseScore, record.Verified, now,
	)
	if err != nil {
		err = fmt.Errorf("upsert domain reputation: %w", err)
		return err
	}
	return nil
}

// Count returns the number of catalogued domains.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "domain_reputation", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	var count int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM domain_reputation`).Scan(&count)
	if err != nil {
		err = fmt.Errorf("count domain reputation: %w", err)
		return 0, err
	}
	return count, nil
}
