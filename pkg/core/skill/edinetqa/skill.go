// Package edinetqa answers questions about Japanese annual securities
// reports with text extracted from the filings themselves.
//
// One Run resolves the organizations and periods a question refers to,
// finds each organization's annual report on EDINET, extracts the requested
// sections and renders them as an evidence report. Anything that stops the
// pipeline short (missing configuration, an ambiguous company, a missing
// filing) is rendered into the report instead of being returned as an error.
package edinetqa

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"edinet_qa/pkg/config"
	"edinet_qa/pkg/core/company"
	"edinet_qa/pkg/core/edinet"
	"edinet_qa/pkg/core/intent"
	"edinet_qa/pkg/core/metrics"
	"edinet_qa/pkg/core/prompt"
	"edinet_qa/pkg/core/sections"
	"edinet_qa/pkg/core/skill"
	"edinet_qa/pkg/core/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ID is the registry id of the skill.
const ID = "edinet_qa"

// Run outcomes reported to metrics.
const (
	OutcomeEvidence      = "evidence"
	OutcomeClarification = "clarification"
	OutcomeConfigError   = "config_error"
)

// Deps are the optional collaborators of the skill. Zero values are replaced
// with working defaults built from the configuration.
type Deps struct {
	// LLM enables the model-assisted paths (intent, disambiguation, section
	// re-rank) when the caller also selects a model.
	LLM          intent.Completer
	HTTPClient   *http.Client
	Metrics      *metrics.Metrics
	SectionCache *store.SectionCache
	// Resolver skips loading the registry file.
	Resolver *company.Resolver
	Logger   *zap.Logger
	Now      func() time.Time
}

// Skill is the EDINET question-answering skill. It is safe for concurrent
// runs; per-run state lives in a run value.
type Skill struct {
	cfg      *config.Config
	deps     Deps
	catalog  *sections.Catalog
	parser   *intent.Parser
	prompts  *prompt.Library
	client   *edinet.Client
	cache    *store.FileCache
	logger   *zap.Logger
	resolver struct {
		sync.Mutex
		r *company.Resolver
	}
}

var _ skill.Skill = (*Skill)(nil)

// New builds the skill. The section catalog is loaded here; an unusable
// override file is logged and the builtin catalog used instead.
func New(cfg *config.Config, deps Deps) *Skill {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SectionCache == nil {
		deps.SectionCache = store.NewSectionCache(nil, filepath.Join(cfg.CacheDir, "sections"))
	}

	catalog, err := sections.Load(cfg.SectionCatalogPath, cfg.SectionScoring)
	if err != nil {
		deps.Logger.Warn("section catalog override not used", zap.Error(err))
	}
	prompts := prompt.Default()
	if cfg.PromptDir != "" {
		if lib, err := prompts.WithOverrides(cfg.PromptDir); err != nil {
			deps.Logger.Warn("prompt overrides not used", zap.Error(err))
		} else {
			prompts = lib
		}
	}

	s := &Skill{
		cfg:     cfg,
		deps:    deps,
		catalog: catalog,
		parser:  intent.NewParser(deps.LLM, deps.Logger).WithPrompts(prompts),
		prompts: prompts,
		client:  edinet.NewClient(cfg.EDINETBaseURL, cfg.EDINETAPIKey, deps.HTTPClient, deps.Metrics),
		cache:   store.NewFileCache(cfg.CacheDir, cfg.CacheTTLHours, deps.Metrics),
		logger:  deps.Logger,
	}
	s.resolver.r = deps.Resolver
	return s
}

// Metadata implements skill.Skill.
func (s *Skill) Metadata() skill.Metadata {
	return skill.Metadata{
		ID:          ID,
		Name:        "EDINET annual report QA",
		Description: "Finds the annual securities report (有価証券報告書) of the companies in a question and returns the requested sections as evidence text.",
	}
}

// Prompts returns the prompt library in use.
func (s *Skill) Prompts() *prompt.Library { return s.prompts }

// loadResolver returns the registry index, reading the file on first use.
// A failed load is retried on the next run.
func (s *Skill) loadResolver() (*company.Resolver, error) {
	s.resolver.Lock()
	defer s.resolver.Unlock()
	if s.resolver.r != nil {
		return s.resolver.r, nil
	}
	r, err := company.LoadFile(s.cfg.RegistryPath, s.logger)
	if err != nil {
		return nil, err
	}
	s.logger.Info("registry loaded", zap.String("path", s.cfg.RegistryPath), zap.Int("organizations", r.Len()))
	s.resolver.r = r
	return r, nil
}

// Run implements skill.Skill.
func (s *Skill) Run(ctx context.Context, userText string, history []skill.Message, sc *skill.Context) (report string) {
	providerID, model := sc.Option()
	rn := &run{
		Skill:      s,
		id:         uuid.NewString(),
		question:   userText,
		providerID: providerID,
		model:      model,
		errs:       &edinet.ErrorList{},
	}
	rn.logger = s.logger.With(zap.String("run_id", rn.id))

	defer func() {
		if p := recover(); p != nil {
			rn.logger.Error("run panicked", zap.Any("panic", p))
			rn.errs.Addf("internal error: %v", p)
			report = rn.renderEvidence(nil)
		}
	}()

	if problems := s.configProblems(); len(problems) > 0 {
		s.deps.Metrics.ObserveRun(OutcomeConfigError)
		rn.logger.Error("configuration incomplete", zap.Strings("problems", problems))
		return rn.renderConfigError(problems)
	}

	out, outcome := rn.execute(ctx, history)
	s.deps.Metrics.ObserveRun(outcome)
	return out
}

// configProblems lists the prerequisites that are missing. The registry is
// not required when a resolver was injected.
func (s *Skill) configProblems() []string {
	var problems []string
	if s.cfg.EDINETAPIKey == "" {
		problems = append(problems, config.ErrMissingAPIKey.Error()+"; set it in the environment or .env")
	}
	if s.deps.Resolver == nil {
		if _, err := s.loadResolver(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				problems = append(problems, fmt.Sprintf("%v: %s; run `edinetqa registry fetch`", config.ErrMissingRegistry, s.cfg.RegistryPath))
			} else {
				problems = append(problems, fmt.Sprintf("registry %s could not be loaded: %v", s.cfg.RegistryPath, err))
			}
		}
	}
	return problems
}
