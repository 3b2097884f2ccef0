package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"doc-compare/internal/compare"
	"doc-compare/internal/config"
	"doc-compare/internal/database"
	"doc-compare/internal/models"
	"doc-compare/internal/processor"
	"doc-compare/internal/segment"
)

func newTestServer(t *testing.T, withStore bool) (*httptest.Server, database.Store) {
	t.Helper()
	cfg := config.DefaultConfig()
	segs := segment.NewRegistry(cfg, nil, nil)
	comp := compare.New(cfg, processor.NewRegistry(cfg, nil), segs, nil)

	var store database.Store
	if withStore {
		s, err := database.NewSQLiteStore(context.Background(), ":memory:")
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Initialize(context.Background()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(s.Close)
		store = s
	}

	ts := httptest.NewServer(New(cfg, comp, segs, store, nil).Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(f[1]))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, false)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestCompareEndpoint(t *testing.T) {
	ts, store := newTestServer(t, true)
	body, ct := multipartBody(t, map[string][2]string{
		"a": {"a.txt", "1. Intro\nfoo bar"},
		"b": {"b.txt", "1. Intro\nfoo baz"},
	})

	resp, err := http.Post(ts.URL+"/api/compare", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result models.ComparisonResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Distance != 1 || len(result.UnitResults) != 1 || result.DocumentA.Name != "a.txt" {
		t.Errorf("result = %+v", result)
	}
	if result.ID == "" {
		t.Fatal("stored result should carry an id")
	}

	got, err := store.GetComparison(context.Background(), result.ID)
	if err != nil || got.Distance != 1 {
		t.Errorf("stored comparison = %+v, %v", got, err)
	}

	resp2, err := http.Get(ts.URL + "/api/comparisons/" + result.ID)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("get status = %d", resp2.StatusCode)
	}

	resp3, err := http.Get(ts.URL + "/api/comparisons?limit=10")
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close()
	var list []models.ComparisonSummary
	if err := json.NewDecoder(resp3.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != result.ID {
		t.Errorf("list = %+v", list)
	}
}

func TestCompareEndpoint_Errors(t *testing.T) {
	ts, _ := newTestServer(t, false)

	tests := []struct {
		name  string
		files map[string][2]string
		want  int
	}{
		{"missing file", map[string][2]string{"a": {"a.txt", "x"}}, http.StatusBadRequest},
		{"empty document", map[string][2]string{"a": {"a.txt", "1. Intro"}, "b": {"b.txt", " "}}, http.StatusUnprocessableEntity},
		{"unsupported format", map[string][2]string{"a": {"a.txt", "1. Intro"}, "b": {"b.odt", "x"}}, http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.files)
			resp, err := http.Post(ts.URL+"/api/compare", ct, body)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestSegmentEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, false)
	resp, err := http.Post(ts.URL+"/api/segment", "application/json",
		strings.NewReader(`{"text":"1. Intro\nfoo\n1.2 Scope\nbar\n1. Intro again","strategy":"numbering"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got segmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Strategy != "numbering" || len(got.Keys) != 2 || got.Keys[0] != "1" || got.Keys[1] != "1.2" {
		t.Errorf("response = %+v", got)
	}
	if got.Sections["1"] != "Intro again" {
		t.Errorf("section 1 = %q, want the last occurrence", got.Sections["1"])
	}
}

func TestSegmentEndpoint_BadStrategy(t *testing.T) {
	ts, _ := newTestServer(t, false)
	resp, err := http.Post(ts.URL+"/api/segment", "application/json", strings.NewReader(`{"text":"x","strategy":"magic"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDiffEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Post(ts.URL+"/api/diff", "application/json", strings.NewReader(`{"a":"foo bar","b":"foo baz"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got diffResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Distance != 1 || len(got.Tokens) != 3 {
		t.Errorf("diff = %+v", got)
	}

	resp2, err := http.Post(ts.URL+"/api/diff?format=html", "application/json", strings.NewReader(`{"a":"foo bar","b":"foo <i>baz</i>"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp2.Body)
	html := buf.String()
	if !strings.Contains(html, `<span class="del">bar</span>`) || strings.Contains(html, "<i>") {
		t.Errorf("html = %q", html)
	}
}

func TestTextEndpoints_BodyLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxTextKB = 1
	segs := segment.NewRegistry(cfg, nil, nil)
	ts := httptest.NewServer(New(cfg, compare.New(cfg, processor.NewRegistry(cfg, nil), segs, nil), segs, nil, nil).Router())
	defer ts.Close()

	big := strings.Repeat("word ", 400)
	for _, path := range []string{"/api/diff", "/api/segment"} {
		body := `{"a":"` + big + `","b":"x","text":"` + big + `"}`
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Errorf("%s status = %d, want 413", path, resp.StatusCode)
		}
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	ts, _ := newTestServer(t, false)
	resp, err := http.Get(ts.URL + "/api/comparisons")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestGetComparison_NotFound(t *testing.T) {
	ts, _ := newTestServer(t, true)
	resp, err := http.Get(ts.URL + "/api/comparisons/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
