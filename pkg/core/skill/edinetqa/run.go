package edinetqa

import (
	"context"
	"fmt"
	"strings"

	"edinet_qa/pkg/core/company"
	"edinet_qa/pkg/core/edinet"
	"edinet_qa/pkg/core/intent"
	"edinet_qa/pkg/core/sections"
	"edinet_qa/pkg/core/skill"
	"edinet_qa/pkg/core/store"
	"edinet_qa/pkg/core/xbrl"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Extraction results reported to metrics.
const (
	extractFound       = "found"
	extractCached      = "cached"
	extractMissing     = "missing"
	extractUnavailable = "unavailable"
)

// run is the state of one Run call.
type run struct {
	*Skill
	id         string
	question   string
	providerID string
	model      string
	errs       *edinet.ErrorList
	logger     *zap.Logger

	in          intent.Intent
	sel         sections.Selection
	resolutions []company.Resolution
}

// target is one organization and period to look up. A zero Period means
// the most recent filing, optionally narrowed by FiscalYear.
type target struct {
	Code       string
	Name       string
	SecCode    string
	Period     intent.Period
	FiscalYear int
}

func (t target) periodLabel() string {
	switch {
	case t.Period.Valid():
		return t.Period.String()
	case t.FiscalYear > 0:
		return fmt.Sprintf("FY%d", t.FiscalYear)
	default:
		return "latest"
	}
}

type sectionResult struct {
	Def    sections.Definition
	Text   string
	Tag    string
	Reason string
	Cached bool
}

type targetResult struct {
	target
	Filing   *edinet.FilingMatch
	Note     string
	Sections []sectionResult
}

func (r targetResult) extracted() int {
	n := 0
	for _, s := range r.Sections {
		if s.Text != "" {
			n++
		}
	}
	return n
}

func (rn *run) execute(ctx context.Context, history []skill.Message) (string, string) {
	turns := make([]intent.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, intent.Turn{Role: m.Role, Content: m.Content})
	}
	rn.in = rn.parser.Parse(ctx, intent.Request{
		Text:       rn.question,
		History:    turns,
		ProviderID: rn.providerID,
		Model:      rn.model,
		Sections:   rn.catalog.All(),
	})
	rn.logger.Info("intent parsed",
		zap.String("source", rn.in.Source),
		zap.Strings("organizations", rn.in.Organizations),
		zap.Int("fiscal_year", rn.in.FiscalYear),
		zap.Int("periods", len(rn.in.ReportPeriods)),
		zap.Strings("section_queries", rn.in.SectionQueries))

	rn.sel = rn.catalog.Select(rn.question, rn.in.SectionQueries, rn.cfg.MaxSections)
	rn.rerankSections(ctx)

	if len(rn.in.Organizations) == 0 {
		return rn.renderClarification(), OutcomeClarification
	}

	resolver, err := rn.loadResolver()
	if err != nil {
		rn.errs.Addf("registry: %v", err)
		return rn.renderClarification(), OutcomeClarification
	}
	repo := edinet.NewRepository(rn.client, rn.cache, rn.errs, rn.logger, edinet.Options{
		Concurrency:           rn.cfg.Concurrency,
		ForceRefresh:          rn.cfg.ForceRefresh,
		FiscalYearCutoffMonth: rn.cfg.FiscalYearCutoffMonth,
		Now:                   rn.deps.Now,
	})

	rn.resolutions = rn.resolve(ctx, resolver, repo)
	for _, res := range rn.resolutions {
		if !res.Resolved() {
			return rn.renderClarification(), OutcomeClarification
		}
	}

	results := rn.extractAll(ctx, repo, rn.targets())
	if err := ctx.Err(); err != nil {
		rn.errs.Addf("run cancelled: %v", err)
	}
	return rn.renderEvidence(results), OutcomeEvidence
}

// resolve maps the intent's organizations to EDINET codes. The recent
// filings scan is only run when some query finds nothing in the registry.
func (rn *run) resolve(ctx context.Context, resolver *company.Resolver, repo *edinet.Repository) []company.Resolution {
	needFallback := false
	for _, res := range resolver.ResolveMany(ctx, rn.in.Organizations, rn.question, nil, nil) {
		if !res.Resolved() && len(res.Candidates) == 0 {
			needFallback = true
			break
		}
	}

	var fallback []company.Entry
	if needFallback {
		entries, err := repo.CollectRecentCompanyEntries(ctx, rn.cfg.LookbackDays)
		if err != nil {
			rn.errs.Addf("recent filings scan: %v", err)
		}
		fallback = entries
		rn.logger.Info("recent filings collected", zap.Int("entries", len(entries)))
	}

	out := resolver.ResolveMany(ctx, rn.in.Organizations, rn.question, fallback, rn.disambiguator())
	for _, res := range out {
		rn.logger.Info("organization resolved",
			zap.String("query", res.Query),
			zap.String("code", res.Code),
			zap.Int("candidates", len(res.Candidates)),
			zap.String("reason", res.Reason))
	}
	return out
}

// targets expands resolved organizations by requested periods, in
// organization-then-period order.
func (rn *run) targets() []target {
	var out []target
	for _, res := range rn.resolutions {
		base := target{Code: res.Code, Name: res.Name, SecCode: res.SecCode}
		if len(rn.in.ReportPeriods) == 0 {
			t := base
			t.FiscalYear = rn.in.FiscalYear
			out = append(out, t)
			continue
		}
		for _, p := range rn.in.ReportPeriods {
			t := base
			t.Period = p
			out = append(out, t)
		}
	}
	return out
}

// extractAll processes targets under the concurrency limit. Results keep
// the order of targets.
func (rn *run) extractAll(ctx context.Context, repo *edinet.Repository, targets []target) []targetResult {
	results := make([]targetResult, len(targets))
	var g errgroup.Group
	g.SetLimit(repo.Concurrency())
	for i, t := range targets {
		g.Go(func() error {
			results[i] = rn.extractTarget(ctx, repo, t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (rn *run) extractTarget(ctx context.Context, repo *edinet.Repository, t target) targetResult {
	res := targetResult{target: t}
	log := rn.logger.With(zap.String("code", t.Code), zap.String("period", t.periodLabel()))

	m, err := repo.FindLatestAnnualFiling(ctx, edinet.FilingQuery{
		Code:           t.Code,
		Name:           t.Name,
		LookbackDays:   rn.cfg.LookbackDays,
		FiscalYear:     t.FiscalYear,
		PeriodEndYear:  t.Period.Year,
		PeriodEndMonth: t.Period.Month,
	})
	if err != nil {
		res.Note = fmt.Sprintf("filing search stopped: %v", err)
		log.Warn("filing search stopped", zap.Error(err))
		return res
	}
	if m == nil {
		res.Note = fmt.Sprintf("no annual report (type 120/130) found in the last %d days for period %s", rn.cfg.LookbackDays, t.periodLabel())
		log.Info("no filing found")
		return res
	}
	res.Filing = m
	log.Info("filing chosen", zap.String("doc_id", m.DocID), zap.String("submitted", m.SubmitDateTime))

	var (
		doc     *xbrl.Document
		docErr  string
		fetched bool
	)
	load := func() {
		fetched = true
		path, ok := repo.DownloadDocumentBundle(ctx, m.DocID)
		if !ok {
			docErr = "filing bundle unavailable (see errors)"
			return
		}
		d, err := xbrl.ParseFile(path)
		if err != nil {
			rn.errs.Addf("%s: %v", m.DocID, err)
			docErr = "filing could not be read"
			return
		}
		if d.Err != nil {
			log.Warn("instance parsed with errors", zap.Error(d.Err))
			res.Note = fmt.Sprintf("instance document is damaged, text after the damage is missing: %v", d.Err)
		}
		doc = d
	}

	for _, def := range rn.sel.Sections {
		sr := sectionResult{Def: def}
		if entry := rn.cachedSection(ctx, m.DocID, def.ID); entry != nil {
			sr.Text, sr.Tag, sr.Cached = entry.Text, entry.MatchedTag, true
			rn.deps.Metrics.ObserveExtraction(extractCached)
			res.Sections = append(res.Sections, sr)
			continue
		}
		if !fetched {
			load()
		}
		if doc == nil {
			sr.Reason = docErr
			rn.deps.Metrics.ObserveExtraction(extractUnavailable)
			res.Sections = append(res.Sections, sr)
			continue
		}

		ex := doc.ExtractFirstAvailable(def.TagCandidates)
		sr.Text, sr.Tag, sr.Reason = ex.Text, ex.Tag, ex.Reason
		if ex.Found() {
			rn.deps.Metrics.ObserveExtraction(extractFound)
			rn.storeSection(ctx, t, m, sr)
		} else {
			rn.deps.Metrics.ObserveExtraction(extractMissing)
		}
		log.Info("section extracted",
			zap.String("section", def.ID),
			zap.String("tag", ex.Tag),
			zap.Int("chars", len([]rune(ex.Text))),
			zap.String("reason", ex.Reason))
		res.Sections = append(res.Sections, sr)
	}
	return res
}

func (rn *run) cachedSection(ctx context.Context, docID, sectionID string) *store.SectionEntry {
	if rn.cfg.ForceRefresh {
		return nil
	}
	entry, err := rn.deps.SectionCache.Get(ctx, docID, sectionID)
	if err != nil {
		rn.logger.Warn("section cache read failed", zap.String("doc_id", docID), zap.String("section", sectionID), zap.Error(err))
		return nil
	}
	if entry == nil || strings.TrimSpace(entry.Text) == "" {
		return nil
	}
	return entry
}

func (rn *run) storeSection(ctx context.Context, t target, m *edinet.FilingMatch, sr sectionResult) {
	err := rn.deps.SectionCache.Put(ctx, store.SectionEntry{
		DocID:       m.DocID,
		SectionID:   sr.Def.ID,
		EDINETCode:  t.Code,
		PeriodEnd:   m.PeriodEnd,
		MatchedTag:  sr.Tag,
		Text:        sr.Text,
		ExtractedAt: rn.deps.Now(),
	})
	if err != nil {
		rn.logger.Warn("section cache write failed", zap.String("doc_id", m.DocID), zap.String("section", sr.Def.ID), zap.Error(err))
	}
}
