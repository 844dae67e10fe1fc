// Package intent turns a question and recent conversation into a structured
// request: organizations, fiscal periods and section queries.
//
// A language model is asked first when the caller selected one. Any failure
// on that path (transport, unparsable reply, wrong shape) falls back to the
// deterministic rules in rules.go.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"edinet_qa/pkg/core/prompt"
	"edinet_qa/pkg/core/sections"
	"edinet_qa/pkg/core/utils"

	"go.uber.org/zap"
)

// Sources of a parsed intent.
const (
	SourceLLM  = "llm"
	SourceRule = "rule"
)

const (
	historyWindow  = 8
	llmMaxTokens   = 400
	reasonNoOrg    = "no organization could be identified in the question"
	reasonRuleOrgs = "the model returned no organizations; rule extraction was used"
)

// Period is a fiscal period end (year and month).
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Valid reports whether the period is within the accepted bounds.
func (p Period) Valid() bool {
	return p.Year >= minYear && p.Year <= maxYear && p.Month >= 1 && p.Month <= 12
}

func (p Period) String() string { return fmt.Sprintf("%d/%02d", p.Year, p.Month) }

// Intent is the parsed request. FiscalYear is 0 when unspecified.
type Intent struct {
	Organizations       []string
	FiscalYear          int
	ReportPeriods       []Period
	SectionQueries      []string
	NeedsClarification  bool
	ClarificationReason string
	Source              string
}

// Turn is one message of the conversation.
type Turn struct {
	Role    string
	Content string
}

// Request is the input to Parse. The model path runs only when Model is set.
type Request struct {
	Text       string
	History    []Turn
	ProviderID string
	Model      string
	Sections   []sections.Definition
}

// Completer runs one prompt against a model.
type Completer interface {
	ExecutePrompt(ctx context.Context, providerID, model, userPrompt, systemPrompt string, maxTokens int) (string, error)
}

// Parser extracts intents.
type Parser struct {
	llm     Completer
	prompts *prompt.Library
	logger  *zap.Logger
}

// NewParser builds a parser. A nil Completer disables the model path.
func NewParser(llm Completer, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{llm: llm, prompts: prompt.Default(), logger: logger}
}

// WithPrompts replaces the prompt library. A nil library is ignored.
func (p *Parser) WithPrompts(lib *prompt.Library) *Parser {
	if lib != nil {
		p.prompts = lib
	}
	return p
}

// Parse never fails: the rule path always produces an intent.
func (p *Parser) Parse(ctx context.Context, req Request) Intent {
	recent := recentUserTurns(req.History)
	if in, ok := p.parseByLLM(ctx, req, recent); ok {
		return in
	}
	return parseByRules(req.Text, recent)
}

func parseByRules(text string, recent []string) Intent {
	combined := strings.TrimSpace(strings.Join(recent, "\n") + "\n" + text)
	in := Intent{
		Organizations:  ExtractOrganizations(combined),
		FiscalYear:     ExtractFiscalYear(combined),
		ReportPeriods:  ExtractPeriods(combined),
		SectionQueries: ExtractSectionQueries(text),
		Source:         SourceRule,
	}
	if len(in.Organizations) == 0 {
		in.NeedsClarification = true
		in.ClarificationReason = reasonNoOrg
	}
	return in
}

// llmReply keeps loosely typed fields so numbers sent as strings still
// coerce; a field of the wrong container type fails decoding.
type llmReply struct {
	Companies           []interface{}     `json:"companies"`
	FiscalYear          interface{}       `json:"fiscal_year"`
	ReportPeriods       []json.RawMessage `json:"report_periods"`
	Sections            []interface{}     `json:"sections"`
	NeedsClarification  interface{}       `json:"needs_clarification"`
	ClarificationReason interface{}       `json:"clarification_reason"`
}

func (p *Parser) parseByLLM(ctx context.Context, req Request, recent []string) (Intent, bool) {
	if p.llm == nil || strings.TrimSpace(req.Model) == "" {
		return Intent{}, false
	}

	user, system, err := buildPrompt(p.prompts, req, recent)
	if err != nil {
		p.logger.Warn("intent prompt unavailable, using rules", zap.Error(err))
		return Intent{}, false
	}
	out, err := p.llm.ExecutePrompt(ctx, req.ProviderID, strings.TrimSpace(req.Model), user, system, llmMaxTokens)
	if err != nil {
		p.logger.Warn("intent model call failed, using rules", zap.Error(err))
		return Intent{}, false
	}
	var reply llmReply
	if _, err := utils.SmartParse(out, &reply); err != nil {
		p.logger.Warn("intent model reply unusable, using rules", zap.Error(err))
		return Intent{}, false
	}
	if reply.Companies == nil {
		p.logger.Warn("intent model reply has no companies array, using rules")
		return Intent{}, false
	}

	combined := joinTurns(req.Text, recent)
	in := Intent{
		Organizations:       stringList(reply.Companies),
		FiscalYear:          coerceYear(reply.FiscalYear),
		ReportPeriods:       periodList(reply.ReportPeriods),
		SectionQueries:      stringList(reply.Sections),
		NeedsClarification:  reply.NeedsClarification == true,
		ClarificationReason: strings.TrimSpace(asString(reply.ClarificationReason)),
		Source:              SourceLLM,
	}
	if len(in.ReportPeriods) == 0 {
		in.ReportPeriods = ExtractPeriods(combined)
	}
	if len(in.Organizations) == 0 {
		in.Organizations = ExtractOrganizations(combined)
		if len(in.Organizations) > 0 && in.ClarificationReason == "" {
			in.ClarificationReason = reasonRuleOrgs
		}
	}
	if len(in.Organizations) == 0 {
		in.NeedsClarification = true
		if in.ClarificationReason == "" {
			in.ClarificationReason = reasonNoOrg
		}
	}
	return in, true
}

func joinTurns(current string, recent []string) string {
	return current + "\n" + strings.Join(recent, "\n")
}

type sectionHint struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Aliases []string `json:"aliases,omitempty"`
}

func buildPrompt(lib *prompt.Library, req Request, recent []string) (string, string, error) {
	hints := make([]sectionHint, 0, len(req.Sections))
	for _, s := range req.Sections {
		hints = append(hints, sectionHint{ID: s.ID, Title: s.Title, Aliases: s.Aliases})
	}
	recentJSON, _ := json.Marshal(recent)
	hintsJSON, _ := json.Marshal(hints)
	return lib.Render(prompt.IntentID, map[string]string{
		"Recent":   string(recentJSON),
		"Sections": string(hintsJSON),
		"Question": req.Text,
	})
}

func stringList(items []interface{}) []string {
	var out []string
	for _, it := range items {
		if s := strings.TrimSpace(asString(it)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// coerceInt accepts JSON numbers and digit strings.
func coerceInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func coerceYear(v interface{}) int {
	if y, ok := coerceInt(v); ok && y >= minYear && y <= maxYear {
		return y
	}
	return 0
}

func periodList(raw []json.RawMessage) []Period {
	var out []Period
	seen := make(map[Period]bool)
	for _, r := range raw {
		var row map[string]interface{}
		if err := json.Unmarshal(r, &row); err != nil {
			continue
		}
		year, okY := coerceInt(row["year"])
		month, okM := coerceInt(row["month"])
		p := Period{Year: year, Month: month}
		if !okY || !okM || !p.Valid() || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
