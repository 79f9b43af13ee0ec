package reference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/refcheck/refcheck/internal/tracing"
)

// ListFilter narrows and pages the reference history listing.
type ListFilter struct {
	Status Status // optional; empty matches all states
	Domain string // optional; exact domain match
	Limit  int
	Offset int
}

// Repository defines data operations for references.
type Repository interface {
	// Create inserts a new reference with a generated UUID.
	Create(ctx context.Context, ref *Reference) error

	// GetByID retrieves a reference by its UUID.
	GetByID(ctx context.Context, id string) (*Reference, error)

	// Update persists mutable fields (metadata, status, score).
	Update(ctx context.Context, ref *Reference) error

	// Delete removes a reference; its report cascades at the storage layer.
	Delete(ctx context.Context, id string) error

	// List returns references matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Reference, error)

	// ListByStatus returns up to limit references in the given state,
	// oldest first. Used by the analysis sweep job.
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Reference, error)
}

// InMemoryRepository is a map-backed Repository for tests and development.
// Thread-safe.
type InMemoryRepository struct {
	mu   sync.RWMutex
	refs map[string]*Reference
}

// NewInMemoryRepository creates an empty in-memory reference store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{refs: make(map[string]*Reference)}
}

// Create inserts a new reference.
func (r *InMemoryRepository) Create(ctx context.Context, ref *Reference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ref.ID == "" {
		ref.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = now
	}
	ref.UpdatedAt = now
	if ref.Status == "" {
		ref.Status = StatusProcessing
	}

	cp := *ref
	r.refs[ref.ID] = &cp
	return nil
}

// GetByID retrieves a reference by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Reference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.refs[id]
	if !ok {
		return nil, ErrReferenceNotFound
	}
	cp := *ref
	return &cp, nil
}

// Update replaces the stored reference.
func (r *InMemoryRepository) Update(ctx context.Context, ref *Reference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.refs[ref.ID]; !ok {
		return ErrReferenceNotFound
	}
	ref.UpdatedAt = time.Now().UTC()
	cp := *ref
	r.refs[ref.ID] = &cp
	return nil
}

// Delete removes a reference.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.refs[id]; !ok {
		return ErrReferenceNotFound
	}
	delete(r.refs, id)
	return nil
}

// List returns references matching the filter, newest first.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Reference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Reference
	for _, ref := range r.refs {
		if filter.Status != "" && ref.Status != filter.Status {
			continue
		}
		if filter.Domain != "" && ref.Domain != filter.Domain {
			continue
		}
		cp := *ref
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return page(out, filter.Limit, filter.Offset), nil
}

// ListByStatus returns references in the given state, oldest first.
func (r *InMemoryRepository) ListByStatus(ctx context.Context, status Status, limit int) ([]*Reference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Reference
	for _, ref := range r.refs {
		if ref.Status != status {
			continue
		}
		cp := *ref
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func page(refs []*Reference, limit, offset int) []*Reference {
	if offset >= len(refs) {
		return nil
	}
	refs = refs[offset:]
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs
}

// PostgresRepository implements Repository on PostgreSQL. Listing queries
// are assembled with squirrel since the filter set is dynamic.
type PostgresRepository struct {
	db      *sql.DB
	logger  *slog.Logger
	builder sq.StatementBuilderType
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:      db,
		logger:  logger,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const referenceColumns = `id, url, COALESCE(domain, ''), title, author, publication_date, status, credibility_score, created_at, updated_at`

// Create inserts a new reference row.
func (r *PostgresRepository) Create(ctx context.Context, ref *Reference) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "references", tracing.DBOperationInsert)
	var err error
	defer func() { endSpan(err) }()

	if ref.ID == "" {
		ref.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = now
	}
	ref.UpdatedAt = now
	if ref.Status == "" {
		ref.Status = StatusProcessing
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO references_checked (id, url, domain, title, author, publication_date, status, credibility_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ref.ID, ref.URL, ref.Domain, ref.Title, ref.Author, ref.PublicationDate,
		ref.Status, ref.Score, ref.CreatedAt, ref.UpdatedAt,
	)
	if err != nil {
		err = fmt.Errorf("insert reference: %w", err)
		return err
	}
	return nil
}

// GetByID retrieves a reference by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Reference, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "references", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+referenceColumns+` FROM references_checked WHERE id = $1`, id)

	ref, err := scanReference(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrReferenceNotFound
	}
	if err != nil {
		err = fmt.Errorf("query reference: %w", err)
		return nil, err
	}
	return ref, nil
}

// Update persists mutable reference fields.
func (r *PostgresRepository) Update(ctx context.Context, ref *Reference) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "references", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	ref.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE references_checked
		SET title = $2, author = $3, publication_date = $4, status = $5,
		    credibility_score = $6, updated_at = $7
		WHERE id = $1`,
		ref.ID, ref.Title, ref.Author, ref.PublicationDate, ref.Status, ref.Score, ref.UpdatedAt,
	)
	if err != nil {
		err = fmt.Errorf("update reference: %w", err)
		return err
	}
	affected, aerr := res.RowsAffected()
	if aerr == nil && affected == 0 {
		return ErrReferenceNotFound
	}
	return nil
}

// Delete removes a reference row; the credibility report cascades.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "references", tracing.DBOperationDelete)
	var err error
	defer func() { endSpan(err) }()

	res, err := r.db.ExecContext(ctx, `DELETE FROM references_checked WHERE id = $1`, id)
	if err != nil {
		err = fmt.Errorf("delete reference: %w", err)
		return err
	}
	affected, aerr := res.RowsAffected()
	if aerr == nil && affected == 0 {
		return ErrReferenceNotFound
	}
	return nil
}

// List returns references matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Reference, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "references", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	q := r.builder.
		Select(referenceColumns).
		From("references_checked").
		OrderBy("created_at DESC", "id ASC")

	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Domain != "" {
		q = q.Where(sq.Eq{"domain": filter.Domain})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		err = fmt.Errorf("build reference listing: %w", err)
		return nil, err
	}

	return r.queryReferences(ctx, query, args...)
}

// ListByStatus returns references in the given state, oldest first.
func (r *PostgresRepository) ListByStatus(ctx context.Context, status Status, limit int) ([]*Reference, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "references", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	q := r.builder.
		Select(referenceColumns).
		From("references_checked").
		Where(sq.Eq{"status": status}).
		OrderBy("created_at ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		err = fmt.Errorf("build status listing: %w", err)
		return nil, err
	}

	return r.queryReferences(ctx, query, args...)
}

func (r *PostgresRepository) queryReferences(ctx context.Context, query string, args ...any) ([]*Reference, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			r.logger.Warn("failed to close reference rows", slog.String("error", cerr.Error()))
		}
	}()

	var refs []*Reference
	for rows.Next() {
		ref, serr := scanReference(rows)
		if serr != nil {
			return nil, fmt.Errorf("scan reference: %w", serr)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return refs, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReference(row rowScanner) (*Reference, error) {
	ref := &Reference{}
	var title, author sql.NullString
	var pubDate sql.NullTime
	var score sql.NullInt64

	err := row.Scan(&ref.ID, &ref.URL, &ref.Domain, &title, &author, &pubDate,
		&ref.Status, &score, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if title.Valid {
		ref.Title = &title.String
	}
	if author.Valid {
		ref.Author = &author.String
	}
	if pubDate.Valid {
		t := pubDate.Time
		ref.PublicationDate = &t
	}
	if score.Valid {
		n := int(score.Int64)
		ref.Score = &n
	}
	return ref, nil
}
