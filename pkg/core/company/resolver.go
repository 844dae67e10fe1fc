// Package company resolves free-text organization mentions to EDINET codes.
//
// The Resolver owns an immutable index built once from the registry dataset.
// Each query is matched by explicit EDINET code, securities code, exact
// normalized name and finally substring of the normalized name. When the
// registry yields nothing the same precedence is applied to a fallback list
// derived from recently submitted documents, which covers companies missing
// from a stale registry snapshot.
package company

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"edinet_qa/pkg/core/textnorm"

	"go.uber.org/zap"
)

// Candidate sources.
const (
	SourceRegistry = "registry"
	SourceRecent   = "recent-filings"
	SourceCode     = "code"
)

// Match kinds.
const (
	MatchCode        = "code-match"
	MatchSecCode     = "sec-code-match"
	MatchExactName   = "exact-name-match"
	MatchPartialName = "partial-name-match"
)

const (
	maxCandidates          = 8
	maxAmbiguousCandidates = 5
)

var (
	edinetCodePattern = regexp.MustCompile(`^E\d{5}$`)
	secCodePattern    = regexp.MustCompile(`^\d{4}$|^\d{4}0$`)
)

// Candidate is one possible organization for a query.
type Candidate struct {
	Code    string
	Name    string
	SecCode string
	Source  string
	Match   string
}

// Resolution is the outcome for one query. Code is set only when exactly one
// candidate was chosen; otherwise Candidates lists the open options.
type Resolution struct {
	Query      string
	Code       string
	Name       string
	SecCode    string
	Reason     string
	Candidates []Candidate
}

// Resolved reports whether the query maps to a single organization.
func (r Resolution) Resolved() bool { return r.Code != "" }

// Ambiguous reports whether several candidates remain for the caller to choose.
func (r Resolution) Ambiguous() bool { return r.Code == "" && len(r.Candidates) > 1 }

// Entry is a fallback organization observed in recent filings.
type Entry struct {
	Code        string
	Name        string
	SecCode     string
	SubmittedAt string
}

// Disambiguator picks one candidate code for a query among ties. Returning an
// empty string or a code outside candidates leaves the query ambiguous.
type Disambiguator interface {
	Pick(ctx context.Context, question, query string, candidates []Candidate) (string, error)
}

// DisambiguatorFunc adapts a function to Disambiguator.
type DisambiguatorFunc func(ctx context.Context, question, query string, candidates []Candidate) (string, error)

func (f DisambiguatorFunc) Pick(ctx context.Context, question, query string, candidates []Candidate) (string, error) {
	return f(ctx, question, query, candidates)
}

// Resolver is read-only after construction.
type Resolver struct {
	rows   []Row
	folded []string
	byCode map[string]int
	bySec  map[string][]int
	byName map[string][]int
	logger *zap.Logger
}

// NewResolver indexes registry rows.
func NewResolver(rows []Row, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		rows:   rows,
		folded: make([]string, len(rows)),
		byCode: make(map[string]int, len(rows)),
		bySec:  make(map[string][]int),
		byName: make(map[string][]int),
		logger: logger,
	}
	for i, row := range rows {
		r.folded[i] = textnorm.Fold(row.Name)
		if _, dup := r.byCode[row.Code]; !dup {
			r.byCode[row.Code] = i
		}
		if row.SecCode != "" {
			r.bySec[row.SecCode] = append(r.bySec[row.SecCode], i)
		}
		if r.folded[i] != "" {
			r.byName[r.folded[i]] = append(r.byName[r.folded[i]], i)
		}
	}
	return r
}

// FromBytes parses a registry blob and indexes it.
func FromBytes(raw []byte, logger *zap.Logger) (*Resolver, error) {
	rows, err := ParseRegistry(raw)
	if err != nil {
		return nil, err
	}
	return NewResolver(rows, logger), nil
}

// LoadFile reads the registry dataset from disk.
func LoadFile(path string, logger *zap.Logger) (*Resolver, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	r, err := FromBytes(raw, logger)
	if err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return r, nil
}

// Len returns the number of indexed organizations.
func (r *Resolver) Len() int { return len(r.rows) }

// ResolveMany resolves each distinct query in input order. Queries are
// de-duplicated by normalized form and a resolved code appears at most once
// in the output.
func (r *Resolver) ResolveMany(ctx context.Context, queries []string, question string, fallback []Entry, d Disambiguator) []Resolution {
	var out []Resolution
	seenCodes := make(map[string]bool)

	for _, q := range dedupeQueries(queries) {
		cands := r.candidates(q)
		if len(cands) == 0 {
			cands = fallbackCandidates(q, fallback)
		}

		switch {
		case len(cands) == 1:
			c := cands[0]
			if seenCodes[c.Code] {
				continue
			}
			seenCodes[c.Code] = true
			out = append(out, resolved(q, c, fmt.Sprintf("%s (%s)", c.Match, c.Source)))

		case len(cands) > 1:
			if picked, ok := r.disambiguate(ctx, d, question, q, cands); ok {
				if seenCodes[picked.Code] {
					continue
				}
				seenCodes[picked.Code] = true
				reason := fmt.Sprintf("disambiguated among %d candidates, %s (%s)", len(cands), picked.Match, picked.Source)
				out = append(out, resolved(q, picked, reason))
				continue
			}
			n := len(cands)
			if n > maxAmbiguousCandidates {
				n = maxAmbiguousCandidates
			}
			out = append(out, Resolution{
				Query:      q,
				Reason:     fmt.Sprintf("%d candidates match; specify an EDINET code or securities code", len(cands)),
				Candidates: append([]Candidate(nil), cands[:n]...),
			})

		default:
			out = append(out, Resolution{Query: q, Reason: "no organization matched"})
		}
	}
	return out
}

func (r *Resolver) disambiguate(ctx context.Context, d Disambiguator, question, query string, cands []Candidate) (Candidate, bool) {
	if d == nil {
		return Candidate{}, false
	}
	code, err := d.Pick(ctx, question, query, cands)
	if err != nil {
		r.logger.Warn("disambiguation failed", zap.String("query", query), zap.Error(err))
		return Candidate{}, false
	}
	code = strings.TrimSpace(code)
	for _, c := range cands {
		if c.Code == code {
			return c, true
		}
	}
	if code != "" {
		r.logger.Warn("disambiguator returned unknown code", zap.String("query", query), zap.String("code", code))
	}
	return Candidate{}, false
}

// candidates searches the registry in precedence order.
func (r *Resolver) candidates(query string) []Candidate {
	q := textnorm.Fold(query)
	if q == "" {
		return nil
	}
	if upper := strings.ToUpper(q); edinetCodePattern.MatchString(upper) {
		if i, ok := r.byCode[upper]; ok {
			return []Candidate{r.candidate(i, MatchCode)}
		}
		return nil
	}
	if secCodePattern.MatchString(q) {
		return r.collect(r.bySec[q[:4]], MatchSecCode)
	}
	if idx := r.byName[q]; len(idx) > 0 {
		return r.collect(idx, MatchExactName)
	}
	var idx []int
	for i, name := range r.folded {
		if name != "" && strings.Contains(name, q) {
			idx = append(idx, i)
			if len(idx) == maxCandidates {
				break
			}
		}
	}
	return r.collect(idx, MatchPartialName)
}

func (r *Resolver) collect(idx []int, match string) []Candidate {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.candidate(i, match))
	}
	return out
}

func (r *Resolver) candidate(i int, match string) Candidate {
	row := r.rows[i]
	return Candidate{Code: row.Code, Name: row.Name, SecCode: row.SecCode, Source: SourceRegistry, Match: match}
}

// fallbackCandidates applies the registry precedence to recent-filing
// entries. An explicit EDINET code with no entry still yields a candidate,
// since the code itself identifies the filer.
func fallbackCandidates(query string, entries []Entry) []Candidate {
	q := textnorm.Fold(query)
	if q == "" {
		return nil
	}
	toCand := func(e Entry, match string) Candidate {
		return Candidate{Code: e.Code, Name: e.Name, SecCode: e.SecCode, Source: SourceRecent, Match: match}
	}

	if upper := strings.ToUpper(q); edinetCodePattern.MatchString(upper) {
		for _, e := range entries {
			if e.Code == upper {
				return []Candidate{toCand(e, MatchCode)}
			}
		}
		return []Candidate{{Code: upper, Name: upper, Source: SourceCode, Match: MatchCode}}
	}

	var sec, exact, partial []Candidate
	isSec := secCodePattern.MatchString(q)
	for _, e := range entries {
		if e.Code == "" || strings.TrimSpace(e.Name) == "" {
			continue
		}
		if isSec {
			if e.SecCode == q[:4] {
				sec = append(sec, toCand(e, MatchSecCode))
			}
			continue
		}
		name := textnorm.Fold(e.Name)
		switch {
		case name == q:
			exact = append(exact, toCand(e, MatchExactName))
		case strings.Contains(name, q):
			partial = append(partial, toCand(e, MatchPartialName))
		}
	}

	picked := partial
	switch {
	case isSec:
		picked = sec
	case len(exact) > 0:
		picked = exact
	}
	return uniqueByCode(picked, maxCandidates)
}

func uniqueByCode(in []Candidate, limit int) []Candidate {
	seen := make(map[string]bool)
	var out []Candidate
	for _, c := range in {
		if seen[c.Code] {
			continue
		}
		seen[c.Code] = true
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}

func resolved(query string, c Candidate, reason string) Resolution {
	return Resolution{
		Query:      query,
		Code:       c.Code,
		Name:       c.Name,
		SecCode:    c.SecCode,
		Reason:     reason,
		Candidates: []Candidate{c},
	}
}

func dedupeQueries(queries []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range queries {
		key := textnorm.Fold(q)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(q))
	}
	return out
}
