package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/refcheck/refcheck/internal/credibility"
	"github.com/refcheck/refcheck/internal/reference"
)

// stubScorer returns a fixed result for every reference.
type stubScorer struct {
	name string
	max  int
	res  credibility.ScoreResult
}

func (s stubScorer) Name() string  { return s.name }
func (s stubScorer) MaxScore() int { return s.max }
func (s stubScorer) Analyze(_ context.Context, _ *reference.Reference) (credibility.ScoreResult, error) {
	return s.res, nil
}

func newTestHandlers(t *testing.T) (*ReferenceHandlers, reference.Repository, credibility.ReportRepository) {
	t.Helper()

	refs := reference.NewInMemoryRepository()
	reports := credibility.NewInMemoryReportRepository(refs)

	analyzer := credibility.NewAnalyzer(
		stubScorer{name: "Domain Reputation Analysis", max: 30, res: credibility.ScoreResult{Score: 25, Explanation: "known domain"}},
		stubScorer{name: "Metadata Quality Analysis", max: 20, res: credibility.ScoreResult{Score: 15, Explanation: "good metadata"}},
		stubScorer{name: "Cross-Reference Analysis", max: 25, res: credibility.ScoreResult{Score: 18, Explanation: "corroborated", Details: map[string]any{"count": 4}}},
		stubScorer{name: "AI Content Analysis", max: 25, res: credibility.ScoreResult{Score: 20, Explanation: "looks solid"}},
		refs, reports, nil, nil, nil, nil,
	)

	// No scraper: background analysis runs on raw submission metadata.
	return NewReferenceHandlers(refs, reports, analyzer, nil, nil), refs, reports
}

func createViaAPI(t *testing.T, h *ReferenceHandlers, url string) reference.Reference {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/references", strings.NewReader(`{"url":"`+url+`"}`))
	w := httptest.NewRecorder()
	h.Collection(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create returned status %d: %s", w.Code, w.Body.String())
	}

	var ref reference.Reference
	if err := json.NewDecoder(w.Body).Decode(&ref); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return ref
}

// waitForCompletion polls until the background pipeline finishes.
func waitForCompletion(t *testing.T, refs reference.Repository, id string) *reference.Reference {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ref, err := refs.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("lookup reference: %v", err)
		}
		if ref.Status != reference.StatusProcessing {
			return ref
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("reference never left processing state")
	return nil
}

func TestCreateReference_Success(t *testing.T) {
	h, refs, _ := newTestHandlers(t)

	ref := createViaAPI(t, h, "https://www.nature.com/articles/s41586-024-1000")

	if ref.ID == "" {
		t.Error("expected generated reference ID")
	}
	if ref.Domain != "nature.com" {
		t.Errorf("domain = %s, want nature.com (www stripped)", ref.Domain)
	}
	if ref.Status != reference.StatusProcessing {
		t.Errorf("status = %s, want processing", ref.Status)
	}

	done := waitForCompletion(t, refs, ref.ID)
	if done.Status != reference.StatusCompleted {
		t.Errorf("status after analysis = %s, want completed", done.Status)
	}
	if done.Score == nil || *done.Score != 78 {
		t.Errorf("score = %v, want 78", done.Score)
	}
}

func TestCreateReference_Validation(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"url":`, ErrCodeBadRequest},
		{"missing url", `{}`, ErrCodeValidation},
		{"blank url", `{"url":"   "}`, ErrCodeValidation},
		{"unparseable url", `{"url":"not a url"}`, ErrCodeInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/references", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.Collection(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("error code = %s, want %s", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestListReferences_FiltersAndPagination(t *testing.T) {
	h, refs, _ := newTestHandlers(t)

	first := createViaAPI(t, h, "https://example.com/a")
	second := createViaAPI(t, h, "https://other.org/b")
	waitForCompletion(t, refs, first.ID)
	waitForCompletion(t, refs, second.ID)

	t.Run("all", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/references", nil)
		w := httptest.NewRecorder()
		h.Collection(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp struct {
			References []reference.Reference `json:"references"`
			Count      int                   `json:"count"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Count != 2 {
			t.Errorf("count = %d, want 2", resp.Count)
		}
	})

	t.Run("domain filter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/references?domain=other.org", nil)
		w := httptest.NewRecorder()
		h.Collection(w, req)

		var resp struct {
			References []reference.Reference `json:"references"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.References) != 1 || resp.References[0].Domain != "other.org" {
			t.Errorf("unexpected filtered result: %+v", resp.References)
		}
	})

	t.Run("limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/references?limit=1", nil)
		w := httptest.NewRecorder()
		h.Collection(w, req)

		var resp struct {
			References []reference.Reference `json:"references"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.References) != 1 {
			t.Errorf("got %d references, want 1", len(resp.References))
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/references?status=bogus", nil)
		w := httptest.NewRecorder()
		h.Collection(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/references?limit=zero", nil)
		w := httptest.NewRecorder()
		h.Collection(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestGetReference(t *testing.T) {
	h, refs, _ := newTestHandlers(t)
	ref := createViaAPI(t, h, "https://example.com/article")
	waitForCompletion(t, refs, ref.ID)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/references/"+ref.ID, nil)
		w := httptest.NewRecorder()
		h.Item(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var got reference.Reference
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != ref.ID {
			t.Errorf("id = %s, want %s", got.ID, ref.ID)
		}
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/references/00000000-0000-0000-0000-000000000000", nil)
		w := httptest.NewRecorder()
		h.Item(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error.Code != ErrCodeReferenceNotFound {
			t.Errorf("error code = %s", resp.Error.Code)
		}
	})
}

func TestDeleteReference(t *testing.T) {
	h, refs, _ := newTestHandlers(t)
	ref := createViaAPI(t, h, "https://example.com/gone")
	waitForCompletion(t, refs, ref.ID)

	req := httptest.NewRequest(http.MethodDelete, "/api/references/"+ref.ID, nil)
	w := httptest.NewRecorder()
	h.Item(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	// Second delete reports not found
	w = httptest.NewRecorder()
	h.Item(w, httptest.NewRequest(http.MethodDelete, "/api/references/"+ref.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want 404", w.Code)
	}
}

func TestReanalyzeReference(t *testing.T) {
	h, refs, reports := newTestHandlers(t)
	ref := createViaAPI(t, h, "https://example.com/again")
	waitForCompletion(t, refs, ref.ID)

	req := httptest.NewRequest(http.MethodPost, "/api/references/"+ref.ID+"/reanalyze", nil)
	w := httptest.NewRecorder()
	h.Item(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var report credibility.Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalScore != 78 {
		t.Errorf("total score = %d, want 78", report.TotalScore)
	}

	// Exactly one report remains after replacement
	stored, err := reports.GetByReferenceID(context.Background(), ref.ID)
	if err != nil {
		t.Fatalf("stored report: %v", err)
	}
	if stored.ID != report.ID {
		t.Errorf("stored report %s is not the latest %s", stored.ID, report.ID)
	}
}

func TestGetReport(t *testing.T) {
	h, refs, _ := newTestHandlers(t)
	ref := createViaAPI(t, h, "https://example.com/scored")
	waitForCompletion(t, refs, ref.ID)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/reports/"+ref.ID, nil)
		w := httptest.NewRecorder()
		h.Report(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var report credibility.Report
		if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if report.ReferenceID != ref.ID {
			t.Errorf("reference_id = %s, want %s", report.ReferenceID, ref.ID)
		}
		if report.DomainScore != 25 || report.JudgeScore != 20 {
			t.Errorf("unexpected component scores: %+v", report)
		}
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/reports/00000000-0000-0000-0000-000000000000", nil)
		w := httptest.NewRecorder()
		h.Report(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error.Code != ErrCodeReportNotFound {
			t.Errorf("error code = %s", resp.Error.Code)
		}
	})

	t.Run("via reference subresource", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/references/"+ref.ID+"/report", nil)
		w := httptest.NewRecorder()
		h.Item(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	tests := []struct {
		method string
		path   string
		via    func(http.ResponseWriter, *http.Request)
	}{
		{http.MethodPut, "/api/references", h.Collection},
		{http.MethodPatch, "/api/references/some-id", h.Item},
		{http.MethodPost, "/api/reports/some-id", h.Report},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			tt.via(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", w.Code)
			}
		})
	}
}

func TestSplitItemPath(t *testing.T) {
	tests := []struct {
		path       string
		wantID     string
		wantAction string
		wantOK     bool
	}{
		{"/api/references/abc", "abc", "", true},
		{"/api/references/abc/", "abc", "", true},
		{"/api/references/abc/reanalyze", "abc", "reanalyze", true},
		{"/api/references/", "", "", false},
		{"/api/references/a/b/c", "", "", false},
	}

	for _, tt := range tests {
		id, action, ok := splitItemPath(tt.path, "/api/references/")
		if id != tt.wantID || action != tt.wantAction || ok != tt.wantOK {
			t.Errorf("splitItemPath(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.path, id, action, ok, tt.wantID, tt.wantAction, tt.wantOK)
		}
	}
}
