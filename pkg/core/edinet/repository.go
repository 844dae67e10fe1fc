package edinet

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"edinet_qa/pkg/core/company"
	"edinet_qa/pkg/core/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Cache namespaces for the two listing modes.
const (
	NamespaceProbe   = "documents-meta"
	NamespaceListing = "documents"
)

const (
	minLookbackDays    = 7
	maxLookbackDays    = 3650
	minRecentScanDays  = 30
	maxRecentScanDays  = 400
	defaultConcurrency = 4
)

var (
	docIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	nonDigits    = regexp.MustCompile(`\D`)
	// JST is the calendar EDINET files its daily listings under.
	JST = time.FixedZone("JST", 9*60*60)
)

// FilingMatch is the filing chosen for one organization and period.
type FilingMatch struct {
	DocID          string
	DocTypeCode    string
	SubmitDateTime string
	FilerName      string
	PeriodEnd      string
}

// FilingQuery selects an annual filing. Zero period fields are unset.
type FilingQuery struct {
	Code           string
	Name           string
	LookbackDays   int
	FiscalYear     int
	PeriodEndYear  int
	PeriodEndMonth int
}

// Options tune a Repository.
type Options struct {
	Concurrency  int
	ForceRefresh bool
	// FiscalYearCutoffMonth is passed to PeriodFilter.CutoffMonth.
	FiscalYearCutoffMonth int
	Now                   func() time.Time
	Location              *time.Location
}

// Repository gives cached access to the daily listings and filing bundles.
// A Repository is meant to live for one run: it memoizes each day's
// listing in memory on top of the shared on-disk cache.
type Repository struct {
	client *Client
	cache  *store.FileCache
	errs   *ErrorList
	logger *zap.Logger
	opts   Options

	mu      sync.Mutex
	days    map[string][]Document
	daySF   singleflight.Group
	fetchSF singleflight.Group
}

// NewRepository wires a repository. errs collects every non-fatal failure.
func NewRepository(client *Client, cache *store.FileCache, errs *ErrorList, logger *zap.Logger, opts Options) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errs == nil {
		errs = &ErrorList{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = JST
	}
	return &Repository{
		client: client,
		cache:  cache,
		errs:   errs,
		logger: logger,
		opts:   opts,
		days:   make(map[string][]Document),
	}
}

// Errors returns the run's error list.
func (r *Repository) Errors() *ErrorList { return r.errs }

// Concurrency is the effective fan-out limit, never below one.
func (r *Repository) Concurrency() int { return r.opts.Concurrency }

// GetDocumentsForDate returns the listing for one day. The cheap probe is
// fetched first; when its fingerprint equals the cached probe the cached
// full listing is reused. On any failure the last fresh cached listing is
// returned, or nothing.
func (r *Repository) GetDocumentsForDate(ctx context.Context, day time.Time) []Document {
	key := day.Format(dateLayout)

	r.mu.Lock()
	docs, ok := r.days[key]
	r.mu.Unlock()
	if ok {
		return docs
	}

	v, _, _ := r.daySF.Do(key, func() (any, error) {
		docs := r.loadDay(ctx, day)
		if ctx.Err() == nil {
			r.mu.Lock()
			r.days[key] = docs
			r.mu.Unlock()
		}
		return docs, nil
	})
	return v.([]Document)
}

func (r *Repository) loadDay(ctx context.Context, day time.Time) []Document {
	key := day.Format(dateLayout)
	params := map[string]string{"date": key}

	var cachedProbe, cachedListing Listing
	haveProbe, haveListing := false, false
	if !r.opts.ForceRefresh {
		haveProbe = r.cache.Get(NamespaceProbe, params, &cachedProbe)
		haveListing = r.cache.Get(NamespaceListing, params, &cachedListing)
	}

	probe, err := r.client.ListDocuments(ctx, day, ListProbe)
	if err != nil {
		r.record(ctx, err)
	} else {
		if err := r.cache.Set(NamespaceProbe, params, probe); err != nil {
			r.logger.Warn("cache write failed", zap.String("namespace", NamespaceProbe), zap.Error(err))
		}
		if haveListing && haveProbe && probe.Fingerprint() == cachedProbe.Fingerprint() {
			r.logger.Debug("listing unchanged, reusing cache", zap.String("date", key))
			return cachedListing.Results
		}
		full, err := r.client.ListDocuments(ctx, day, ListFull)
		if err != nil {
			r.record(ctx, err)
		} else {
			if err := r.cache.Set(NamespaceListing, params, full); err != nil {
				r.logger.Warn("cache write failed", zap.String("namespace", NamespaceListing), zap.Error(err))
			}
			return full.Results
		}
	}

	if haveListing {
		r.logger.Debug("serving cached listing after fetch failure", zap.String("date", key))
		return cachedListing.Results
	}
	return nil
}

// record keeps a failure unless it was caused by the caller giving up.
func (r *Repository) record(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	r.logger.Warn("edinet request failed", zap.Error(err))
	r.errs.Add(err)
}

// FindLatestAnnualFiling scans back over the lookback window and returns the
// most recently submitted annual report of q.Code passing the period
// filters, or nil. The error is only the context's.
func (r *Repository) FindLatestAnnualFiling(ctx context.Context, q FilingQuery) (*FilingMatch, error) {
	filter := PeriodFilter{
		FiscalYear:     q.FiscalYear,
		PeriodEndYear:  q.PeriodEndYear,
		PeriodEndMonth: q.PeriodEndMonth,
		CutoffMonth:    r.opts.FiscalYearCutoffMonth,
	}
	days := clamp(q.LookbackDays, minLookbackDays, maxLookbackDays)

	listings, err := r.scan(ctx, days)
	if err != nil {
		return nil, err
	}

	var candidates []Document
	for _, docs := range listings {
		for _, d := range docs {
			if !d.IsAnnual() || d.EDINETCode != q.Code {
				continue
			}
			if !filter.Matches(d.PeriodEnd) {
				continue
			}
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SubmitKey() > candidates[j].SubmitKey()
	})
	top := candidates[0]
	name := top.FilerName
	if name == "" {
		name = q.Name
	}
	return &FilingMatch{
		DocID:          top.DocID,
		DocTypeCode:    top.DocTypeCode,
		SubmitDateTime: top.SubmitKey(),
		FilerName:      name,
		PeriodEnd:      top.PeriodEnd,
	}, nil
}

// CollectRecentCompanyEntries indexes the latest annual submission per
// organization over min(max(30, lookbackDays), 400) days, in first-seen
// order (newest day first).
func (r *Repository) CollectRecentCompanyEntries(ctx context.Context, lookbackDays int) ([]company.Entry, error) {
	days := clamp(lookbackDays, minRecentScanDays, maxRecentScanDays)
	listings, err := r.scan(ctx, days)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var entries []company.Entry
	for _, docs := range listings {
		for _, d := range docs {
			if !d.IsAnnual() {
				continue
			}
			code := strings.TrimSpace(d.EDINETCode)
			name := strings.TrimSpace(d.FilerName)
			if code == "" || name == "" {
				continue
			}
			e := company.Entry{
				Code:        code,
				Name:        name,
				SecCode:     firstDigits(d.SecCode, 4),
				SubmittedAt: d.SubmitKey(),
			}
			i, seen := index[code]
			if !seen {
				index[code] = len(entries)
				entries = append(entries, e)
				continue
			}
			if entries[i].SubmittedAt < e.SubmittedAt {
				entries[i] = e
			}
		}
	}
	return entries, nil
}

// scan loads the listings of the last n days with bounded parallelism.
// Slot i holds the listing of today minus i days, whatever order the
// fetches complete in.
func (r *Repository) scan(ctx context.Context, n int) ([][]Document, error) {
	today := r.today()
	out := make([][]Document, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		day := today.AddDate(0, 0, -i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = r.GetDocumentsForDate(gctx, day)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) today() time.Time {
	now := r.opts.Now().In(r.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.opts.Location)
}

// DownloadDocumentBundle returns the path of the public XBRL instance of a
// document, downloading and extracting the bundle unless a fresh extraction
// exists. Failures are recorded and reported as ("", false).
func (r *Repository) DownloadDocumentBundle(ctx context.Context, docID string) (string, bool) {
	endpoint := fmt.Sprintf("documents/%s?type=1", docID)
	if !docIDPattern.MatchString(docID) {
		r.errs.Addf("%s invalid_doc_id", endpoint)
		return "", false
	}

	v, _, _ := r.fetchSF.Do(docID, func() (any, error) {
		return r.downloadBundle(ctx, docID, endpoint), nil
	})
	path := v.(string)
	return path, path != ""
}

func (r *Repository) downloadBundle(ctx context.Context, docID, endpoint string) string {
	docDir := filepath.Join(r.cache.Root(), "bundles", docID)
	if !r.opts.ForceRefresh {
		if path := r.freshInstance(docDir); path != "" {
			r.logger.Debug("bundle cache hit", zap.String("doc_id", docID))
			return path
		}
	}

	extractDir := filepath.Join(docDir, "extracted")
	if err := os.RemoveAll(extractDir); err != nil {
		r.errs.Addf("%s clear_cache: %v", endpoint, err)
		return ""
	}

	data, err := r.client.DownloadBundle(ctx, docID)
	if err != nil {
		r.record(ctx, err)
		return ""
	}
	if err := extractZip(data, extractDir); err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrInsecurePath) || errors.Is(err, errUnsafeEntry) {
			r.errs.Addf("%s invalid_zip", endpoint)
		} else {
			r.errs.Addf("%s extract: %v", endpoint, err)
		}
		return ""
	}
	if path := findInstance(extractDir); path != "" {
		return path
	}
	r.errs.Addf("%s no_xbrl", endpoint)
	return ""
}

func (r *Repository) freshInstance(docDir string) string {
	var found string
	filepath.WalkDir(docDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" {
			return nil
		}
		if !d.IsDir() && isPublicInstance(docDir, path) && r.cache.IsFresh(path) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

func findInstance(root string) string {
	var found string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && isPublicInstance(root, path) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// isPublicInstance matches *.xbrl files under a PublicDoc directory.
func isPublicInstance(root, path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".xbrl") {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "PublicDoc" {
			return true
		}
	}
	return false
}

var errUnsafeEntry = errors.New("archive entry escapes extraction directory")

func extractZip(data []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	base := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, base) {
			return fmt.Errorf("%w: %s", errUnsafeEntry, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func firstDigits(s string, n int) string {
	d := nonDigits.ReplaceAllString(s, "")
	if len(d) > n {
		d = d[:n]
	}
	return d
}
