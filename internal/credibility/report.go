package credibility

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/refcheck/refcheck/internal/reference"
	"github.com/refcheck/refcheck/internal/tracing"
)

// ErrReportNotFound is returned when no report exists for a reference.
var ErrReportNotFound = errors.New("credibility report not found")

// Report is the persisted outcome of a full analysis. Exactly one live
// report exists per reference; re-analysis replaces it.
type Report struct {
	ID          string `json:"report_id"`
	ReferenceID string `json:"reference_id"`

	DomainScore   int `json:"domain_score"`
	MetadataScore int `json:"metadata_score"`
	CrossRefScore int `json:"rag_score"`
	JudgeScore    int `json:"ai_score"`
	TotalScore    int `json:"total_score"`

	DomainExplanation   string `json:"domain_explanation"`
	MetadataExplanation string `json:"metadata_explanation"`
	CrossRefExplanation string `json:"rag_explanation"`
	JudgeExplanation    string `json:"ai_explanation"`

	RedFlags []string `json:"red_flags"`

	CreatedAt time.Time `json:"created_at"`
}

// ReportRepository persists credibility reports.
type ReportRepository interface {
	// Replace atomically deletes any prior report for the report's
	// reference, inserts the new one, and marks the reference completed
	// with the total score. Readers never observe two live reports or a
	// report without its reference score.
	Replace(ctx context.Context, report *Report) error

	// GetByReferenceID returns the live report for a reference.
	GetByReferenceID(ctx context.Context, referenceID string) (*Report, error)

	// DeleteByReferenceID removes the report for a reference, if any.
	DeleteByReferenceID(ctx context.Context, referenceID string) error
}

// InMemoryReportRepository is a map-backed ReportRepository for tests.
// Thread-safe. Replace also updates the reference store it was built
// with, mirroring the transactional behavior of the Postgres variant.
type InMemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*Report // keyed by reference ID
	refs    reference.Repository
}

// NewInMemoryReportRepository creates an empty in-memory report store.
// The reference repository may be nil when reference updates are not
// under test.
func NewInMemoryReportRepository(refs reference.Repository) *InMemoryReportRepository {
	return &InMemoryReportRepository{reports: make(map[string]*Report), refs: refs}
}

// Replace swaps in the new report and completes the reference.
func (r *InMemoryReportRepository) Replace(ctx context.Context, report *Report) error {
	r.mu.Lock()
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	cp := *report
	r.reports[report.ReferenceID] = &cp
	r.mu.Unlock()

	if r.refs == nil {
		return nil
	}
	ref, err := r.refs.GetByID(ctx, report.ReferenceID)
	if err != nil {
		return err
	}
	score := report.TotalScore
	ref.Status = reference.StatusCompleted
	ref.Score = &score
	return r.refs.Update(ctx, ref)
}

// GetByReferenceID returns the live report for a reference.
func (r *InMemoryReportRepository) GetByReferenceID(ctx context.Context, referenceID string) (*Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[referenceID]
	if !ok {
		return nil, ErrReportNotFound
	}
	cp := *report
	return &cp, nil
}

// DeleteByReferenceID removes the report for a reference.
func (r *InMemoryReportRepository) DeleteByReferenceID(ctx context.Context, referenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.reports, referenceID)
	return nil
}

// Count returns the number of stored reports. Test helper.
func (r *InMemoryReportRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports)
}

// PostgresReportRepository implements ReportRepository on PostgreSQL.
type PostgresReportRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresReportRepository creates a new PostgresReportRepository.
func NewPostgresReportRepository(db *sql.DB, logger *slog.Logger) *PostgresReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReportRepository{db: db, logger: logger}
}

// Replace runs delete-old, insert-new, and the reference status update
// in a single transaction. The UNIQUE constraint on reference_id backs
// the one-live-report invariant even under concurrent re-analysis.
func (r *PostgresReportRepository) Replace(ctx context.Context, report *Report) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "credibility_reports", tracing.DBOperationExec)
	var err error
	defer func() { endSpan(err) }()

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	redFlags, err := json.Marshal(report.RedFlags)
	if err != nil {
		err = fmt.Errorf("marshal red flags: %w", err)
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("begin replace report: %w", err)
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Warn("failed to rollback report replacement",
					slog.String("error", rbErr.Error()))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM credibility_reports WHERE reference_id = $1`, report.ReferenceID); err != nil {
		err = fmt.Errorf("delete prior report: %w", err)
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credibility_reports (
			id, reference_id,
			domain_score, metadata_score, rag_score, ai_score, total_score,
			domain_explanation, metadata_explanation, rag_explanation, ai_explanation,
			red_flags, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		report.ID, report.ReferenceID,
		report.DomainScore, report.MetadataScore, report.CrossRefScore, report.JudgeScore, report.TotalScore,
		report.DomainExplanation, report.MetadataExplanation, report.CrossRefExplanation, report.JudgeExplanation,
		redFlags, report.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			err = fmt.Errorf("concurrent report replacement for reference %s: %w", report.ReferenceID, err)
		} else {
			err = fmt.Errorf("insert report: %w", err)
		}
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE references_checked
		SET status = $2, credibility_score = $3, updated_at = $4
		WHERE id = $1`,
		report.ReferenceID, reference.StatusCompleted, report.TotalScore, time.Now().UTC(),
	)
	if err != nil {
		err = fmt.Errorf("complete reference: %w", err)
		return err
	}
	if affected, aerr := res.RowsAffected(); aerr == nil && affected == 0 {
		err = reference.ErrReferenceNotFound
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit report replacement: %w", err)
		return err
	}
	return nil
}

// GetByReferenceID returns the live report for a reference.
func (r *PostgresReportRepository) GetByReferenceID(ctx context.Context, referenceID string) (*Report, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "credibility_reports", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, reference_id,
		       domain_score, metadata_score, rag_score, ai_score, total_score,
		       COALESCE(domain_explanation, ''), COALESCE(metadata_explanation, ''),
		       COALESCE(rag_explanation, ''), COALESCE(ai_explanation, ''),
		       COALESCE(red_flags, '[]'), created_at
		FROM credibility_reports
		WHERE reference_id = $1`, referenceID)

	report := &Report{}
	var redFlags []byte
	err = row.Scan(&report.ID, &report.ReferenceID,
		&report.DomainScore, &report.MetadataScore, &report.CrossRefScore, &report.JudgeScore, &report.TotalScore,
		&report.DomainExplanation, &report.MetadataExplanation, &report.CrossRefExplanation, &report.JudgeExplanation,
		&redFlags, &report.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrReportNotFound
	}
	if err != nil {
		err = fmt.Errorf("query report: %w", err)
		return nil, err
	}

	if jerr := json.Unmarshal(redFlags, &report.RedFlags); jerr != nil {
		r.logger.Warn("corrupt red flags payload, returning empty",
			slog.String("report_id", report.ID),
			slog.String("error", jerr.Error()))
		report.RedFlags = nil
	}
	return report, nil
}

// DeleteByReferenceID removes the report for a reference.
func (r *PostgresReportRepository) DeleteByReferenceID(ctx context.Context, referenceID string) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "credibility_reports", tracing.DBOperationDelete)
	var err error
	defer func() { endSpan(err) }()

	_, err = r.db.ExecContext(ctx,
		`DELETE FROM credibility_reports WHERE reference_id = $1`, referenceID)
	if err != nil {
		err = fmt.Errorf("delete report: %w", err)
		return err
	}
	return nil
}
