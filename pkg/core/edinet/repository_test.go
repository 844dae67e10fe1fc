package edinet

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"edinet_qa/pkg/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

var testNow = time.Date(2024, 6, 20, 12, 0, 0, 0, JST)

type fakeAPI struct {
	mu      sync.Mutex
	days    map[string][]Document
	bundles map[string][]byte
	process string
	status  int
	hits    map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		days:    make(map[string][]Document),
		bundles: make(map[string][]byte),
		process: "2024-06-20 12:00",
		hits:    make(map[string]int),
	}
}

func (f *fakeAPI) hit(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Subscription-Key") != testKey || r.URL.Query().Get("Subscription-Key") != testKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}

	switch {
	case r.URL.Path == "/documents.json":
		date := r.URL.Query().Get("date")
		mode := r.URL.Query().Get("type")
		f.hits["type"+mode+":"+date]++
		docs := f.days[date]
		listing := Listing{}
		listing.Metadata.Status = "200"
		listing.Metadata.ProcessDateTime = looseField(f.process)
		listing.Metadata.ResultSet.Count = len(docs)
		if mode == "2" {
			listing.Results = docs
		}
		json.NewEncoder(w).Encode(listing)

	case strings.HasPrefix(r.URL.Path, "/documents/"):
		id := strings.TrimPrefix(r.URL.Path, "/documents/")
		f.hits["bundle:"+id]++
		data, ok := f.bundles[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestRepo(t *testing.T, api *fakeAPI, cacheDir string) *Repository {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, testKey, srv.Client(), nil)
	cache := store.NewFileCache(cacheDir, 24, nil)
	return NewRepository(client, cache, &ErrorList{}, nil, Options{
		Concurrency:           3,
		FiscalYearCutoffMonth: 6,
		Now:                   func() time.Time { return testNow },
	})
}

func annual(docID, code, submit, periodEnd string) Document {
	return Document{
		DocID:          docID,
		EDINETCode:     code,
		SecCode:        "72030",
		FilerName:      "Example Motors",
		DocTypeCode:    "120",
		PeriodEnd:      periodEnd,
		SubmitDateTime: submit,
	}
}

func TestFindLatestAnnualFiling_LatestSubmissionWins(t *testing.T) {
	api := newFakeAPI()
	api.days["2024-06-20"] = []Document{
		annual("S100OLD", "E00001", "2024-06-20 09:00", "2024-03-31"),
		annual("S100NEW", "E00001", "2024-06-20 15:30", "2024-03-31"),
		annual("S100OTHER", "E00002", "2024-06-20 16:00", "2024-03-31"),
		{DocID: "S100QTR", EDINETCode: "E00001", DocTypeCode: "140", SubmitDateTime: "2024-06-20 17:00"},
	}
	api.days["2024-06-18"] = []Document{
		annual("S100PREV", "E00001", "2024-06-18 10:00", "2024-03-31"),
	}
	repo := newTestRepo(t, api, t.TempDir())

	m, err := repo.FindLatestAnnualFiling(context.Background(), FilingQuery{Code: "E00001", LookbackDays: 30})

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "S100NEW", m.DocID)
	assert.Equal(t, "120", m.DocTypeCode)
	assert.Equal(t, "2024-06-20 15:30", m.SubmitDateTime)
	assert.Equal(t, "2024-03-31", m.PeriodEnd)
	assert.Zero(t, repo.Errors().Len())
}

func TestFindLatestAnnualFiling_PeriodFilters(t *testing.T) {
	api := newFakeAPI()
	api.days["2024-06-19"] = []Document{annual("S100FY23", "E00001", "2024-06-19 10:00", "2024-03-31")}
	api.days["2024-06-10"] = []Document{annual("S100FY22", "E00001", "2024-06-10 10:00", "2023-03-31")}
	repo := newTestRepo(t, api, t.TempDir())
	ctx := context.Background()

	m, err := repo.FindLatestAnnualFiling(ctx, FilingQuery{Code: "E00001", LookbackDays: 30, PeriodEndYear: 2023, PeriodEndMonth: 3})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "S100FY22", m.DocID)

	m, err = repo.FindLatestAnnualFiling(ctx, FilingQuery{Code: "E00001", LookbackDays: 30, FiscalYear: 2023})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "S100FY23", m.DocID, "a March 2024 year end counts as fiscal 2023")

	m, err = repo.FindLatestAnnualFiling(ctx, FilingQuery{Code: "E00001", LookbackDays: 30, PeriodEndYear: 2021, PeriodEndMonth: 3})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestGetDocumentsForDate_ProbeFingerprint(t *testing.T) {
	api := newFakeAPI()
	api.days["2024-06-20"] = []Document{annual("S100A", "E00001", "2024-06-20 09:00", "2024-03-31")}
	cacheDir := t.TempDir()
	ctx := context.Background()

	docs := newTestRepo(t, api, cacheDir).GetDocumentsForDate(ctx, testNow)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, api.hit("type1:2024-06-20"))
	assert.Equal(t, 1, api.hit("type2:2024-06-20"))

	// unchanged probe: the full listing comes from disk
	docs = newTestRepo(t, api, cacheDir).GetDocumentsForDate(ctx, testNow)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, api.hit("type1:2024-06-20"))
	assert.Equal(t, 1, api.hit("type2:2024-06-20"))

	// changed process timestamp: refetch
	api.mu.Lock()
	api.process = "2024-06-20 18:00"
	api.days["2024-06-20"] = append(api.days["2024-06-20"], annual("S100B", "E00002", "2024-06-20 17:00", "2024-03-31"))
	api.mu.Unlock()
	docs = newTestRepo(t, api, cacheDir).GetDocumentsForDate(ctx, testNow)
	assert.Len(t, docs, 2)
	assert.Equal(t, 2, api.hit("type2:2024-06-20"))
}

func TestGetDocumentsForDate_MemoizedPerRun(t *testing.T) {
	api := newFakeAPI()
	repo := newTestRepo(t, api, t.TempDir())
	ctx := context.Background()

	repo.GetDocumentsForDate(ctx, testNow)
	repo.GetDocumentsForDate(ctx, testNow)

	assert.Equal(t, 1, api.hit("type1:2024-06-20"))
}

func TestGetDocumentsForDate_FallsBackToFreshCache(t *testing.T) {
	api := newFakeAPI()
	api.days["2024-06-20"] = []Document{annual("S100A", "E00001", "2024-06-20 09:00", "2024-03-31")}
	cacheDir := t.TempDir()
	ctx := context.Background()
	require.Len(t, newTestRepo(t, api, cacheDir).GetDocumentsForDate(ctx, testNow), 1)

	api.mu.Lock()
	api.status = http.StatusInternalServerError
	api.mu.Unlock()

	repo := newTestRepo(t, api, cacheDir)
	docs := repo.GetDocumentsForDate(ctx, testNow)
	assert.Len(t, docs, 1)
	assert.Equal(t, []string{"documents.json date=2024-06-20 type=1 status=500"}, repo.Errors().Sorted())

	// a stale listing is not served
	listing := store.NewFileCache(cacheDir, 24, nil).Path(NamespaceListing, map[string]string{"date": "2024-06-20"})
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(listing, old, old))
	repo = newTestRepo(t, api, cacheDir)
	assert.Empty(t, repo.GetDocumentsForDate(ctx, testNow))
	assert.Equal(t, 1, repo.Errors().Len())
}

func TestGetDocumentsForDate_CorruptCacheRefetches(t *testing.T) {
	api := newFakeAPI()
	api.days["2024-06-20"] = []Document{annual("S100A", "E00001", "2024-06-20 09:00", "2024-03-31")}
	cacheDir := t.TempDir()
	ctx := context.Background()
	require.Len(t, newTestRepo(t, api, cacheDir).GetDocumentsForDate(ctx, testNow), 1)

	listing := store.NewFileCache(cacheDir, 24, nil).Path(NamespaceListing, map[string]string{"date": "2024-06-20"})
	require.NoError(t, os.WriteFile(listing, []byte("{broken"), 0o644))

	docs := newTestRepo(t, api, cacheDir).GetDocumentsForDate(ctx, testNow)
	assert.Len(t, docs, 1)
	assert.Equal(t, 2, api.hit("type2:2024-06-20"))
}

func TestCollectRecentCompanyEntries(t *testing.T) {
	api := newFakeAPI()
	api.days["2024-06-20"] = []Document{annual("S100A", "E00001", "2024-06-20 09:00", "2024-03-31")}
	api.days["2024-05-01"] = []Document{
		{DocID: "S100B", EDINETCode: "E00002", SecCode: "13010", FilerName: "Sample Foods", DocTypeCode: "130", SubmitDateTime: "2024-05-01 10:00"},
		annual("S100C", "E00001", "2024-05-01 09:00", "2023-03-31"),
		{DocID: "S100D", EDINETCode: "E00003", FilerName: "", DocTypeCode: "120"},
	}
	repo := newTestRepo(t, api, t.TempDir())

	entries, err := repo.CollectRecentCompanyEntries(context.Background(), 60)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "E00001", entries[0].Code)
	assert.Equal(t, "2024-06-20 09:00", entries[0].SubmittedAt)
	assert.Equal(t, "7203", entries[0].SecCode)
	assert.Equal(t, "E00002", entries[1].Code)
	assert.Equal(t, "1301", entries[1].SecCode)
}

func TestFindLatestAnnualFiling_Cancelled(t *testing.T) {
	repo := newTestRepo(t, newFakeAPI(), t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := repo.FindLatestAnnualFiling(ctx, FilingQuery{Code: "E00001", LookbackDays: 365})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, m)
	assert.Zero(t, repo.Errors().Len())
}

func bundle(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDownloadDocumentBundle(t *testing.T) {
	api := newFakeAPI()
	api.bundles["S100GOOD"] = bundle(t, map[string]string{
		"XBRL/AuditDoc/audit.xbrl":          "<xbrl/>",
		"XBRL/PublicDoc/jpcrp030000.xbrl":   "<xbrl/>",
		"XBRL/PublicDoc/0101010_honbun.htm": "<html/>",
	})
	api.bundles["S100NOXBRL"] = bundle(t, map[string]string{"XBRL/PublicDoc/readme.txt": "x"})
	api.bundles["S100BADZIP"] = []byte("not a zip")
	api.bundles["S100SLIP"] = bundle(t, map[string]string{"../../escape.xbrl": "x"})
	cacheDir := t.TempDir()
	ctx := context.Background()

	repo := newTestRepo(t, api, cacheDir)
	path, ok := repo.DownloadDocumentBundle(ctx, "S100GOOD")
	require.True(t, ok)
	assert.Equal(t, "jpcrp030000.xbrl", filepath.Base(path))
	assert.Contains(t, filepath.ToSlash(path), "/PublicDoc/")

	// a fresh extraction is reused
	path2, ok := newTestRepo(t, api, cacheDir).DownloadDocumentBundle(ctx, "S100GOOD")
	require.True(t, ok)
	assert.Equal(t, path, path2)
	assert.Equal(t, 1, api.hit("bundle:S100GOOD"))

	tests := []struct {
		docID string
		want  string
	}{
		{"S100NOXBRL", "documents/S100NOXBRL?type=1 no_xbrl"},
		{"S100BADZIP", "documents/S100BADZIP?type=1 invalid_zip"},
		{"S100SLIP", "documents/S100SLIP?type=1 invalid_zip"},
		{"S100MISSING", "documents/S100MISSING?type=1 status=404"},
		{"../etc", "documents/../etc?type=1 invalid_doc_id"},
	}
	for _, tt := range tests {
		t.Run(tt.docID, func(t *testing.T) {
			repo := newTestRepo(t, api, cacheDir)
			path, ok := repo.DownloadDocumentBundle(ctx, tt.docID)
			assert.False(t, ok)
			assert.Empty(t, path)
			assert.Equal(t, []string{tt.want}, repo.Errors().Sorted())
		})
	}
	_, err := os.Stat(filepath.Join(cacheDir, "escape.xbrl"))
	assert.True(t, os.IsNotExist(err), fmt.Sprint(err))
}

func TestNewRepository_DefaultConcurrency(t *testing.T) {
	assert.Equal(t, defaultConcurrency, NewRepository(nil, nil, nil, nil, Options{}).Concurrency())
	assert.Equal(t, 2, NewRepository(nil, nil, nil, nil, Options{Concurrency: 2}).Concurrency())
}
