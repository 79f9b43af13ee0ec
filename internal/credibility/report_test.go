package credibility

import (
	"context"
	"testing"

	"github.com/refcheck/refcheck/internal/reference"
)

func TestInMemoryReportRepository_ReplaceCompletesReference(t *testing.T) {
	refs := reference.NewInMemoryRepository()
	reports := NewInMemoryReportRepository(refs)

	ref := &reference.Reference{URL: "https://example.org/a"}
	if err := refs.Create(context.Background(), ref); err != nil {
		t.Fatalf("create reference: %v", err)
	}

	report := &Report{ReferenceID: ref.ID, DomainScore: 30, MetadataScore: 20, CrossRefScore: 18, JudgeScore: 15, TotalScore: 83}
	if err := reports.Replace(context.Background(), report); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	if report.ID == "" {
		t.Error("expected generated report ID")
	}
	if report.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	stored, err := refs.GetByID(context.Background(), ref.ID)
	if err != nil {
		t.Fatalf("reload reference: %v", err)
	}
	if stored.Status != reference.StatusCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}
	if stored.Score == nil || *stored.Score != 83 {
		t.Errorf("expected score 83, got %v", stored.Score)
	}
}

func TestInMemoryReportRepository_ReplaceTwiceKeepsOne(t *testing.T) {
	refs := reference.NewInMemoryRepository()
	reports := NewInMemoryReportRepository(refs)

	ref := &reference.Reference{URL: "https://example.org/a"}
	if err := refs.Create(context.Background(), ref); err != nil {
		t.Fatalf("create reference: %v", err)
	}

	for i := 0; i < 2; i++ {
		report := &Report{ReferenceID: ref.ID, TotalScore: 50 + i}
		if err := reports.Replace(context.Background(), report); err != nil {
			t.Fatalf("Replace %d failed: %v", i, err)
		}
	}

	if reports.Count() != 1 {
		t.Errorf("expected one live report, got %d", reports.Count())
	}
	live, err := reports.GetByReferenceID(context.Background(), ref.ID)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if live.TotalScore != 51 {
		t.Errorf("expected the second report to survive, got total %d", live.TotalScore)
	}
}

func TestInMemoryReportRepository_MissingReport(t *testing.T) {
	reports := NewInMemoryReportRepository(nil)

	if _, err := reports.GetByReferenceID(context.Background(), "nope"); err != ErrReportNotFound {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}

func TestInMemoryReportRepository_Delete(t *testing.T) {
	reports := NewInMemoryReportRepository(nil)

	report := &Report{ReferenceID: "ref-1", TotalScore: 40}
	if err := reports.Replace(context.Background(), report); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := reports.DeleteByReferenceID(context.Background(), "ref-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := reports.GetByReferenceID(context.Background(), "ref-1"); err != ErrReportNotFound {
		t.Errorf("expected ErrReportNotFound after delete, got %v", err)
	}
}
