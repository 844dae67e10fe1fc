// Package sections holds the catalog of annual-report sections and routes a
// question to the sections whose text should be extracted.
package sections

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"edinet_qa/pkg/core/textnorm"

	"gopkg.in/yaml.v2"
)

// Definition describes one canonical section of the annual report.
type Definition struct {
	ID            string   `yaml:"section_id" json:"section_id"`
	Title         string   `yaml:"title" json:"title"`
	TagCandidates []string `yaml:"tag_candidates" json:"tag_candidates"`
	Keywords      []string `yaml:"keywords" json:"keywords"`
	Aliases       []string `yaml:"aliases" json:"aliases"`
}

// Scoring holds the keyword-ranking weights. The defaults reproduce the
// hand-tuned behaviour: two points per keyword hit and a one point nudge
// toward the business-overview group ("2-").
type Scoring struct {
	KeywordWeight  int    `yaml:"keyword_weight"`
	PriorityBias   int    `yaml:"priority_bias"`
	PriorityPrefix string `yaml:"priority_prefix"`
}

// DefaultScoring returns the standard ranking weights.
func DefaultScoring() Scoring {
	return Scoring{KeywordWeight: 2, PriorityBias: 1, PriorityPrefix: "2-"}
}

// Reason labels attached to each selected section.
const (
	ReasonExplicit = "explicit"
	ReasonKeyword  = "keyword"
	ReasonDefault  = "default"
	ReasonRerank   = "llm-rerank"
)

// DefaultMaxSections is used when a caller passes a non-positive limit.
const DefaultMaxSections = 3

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	sections []Definition
	byID     map[string]int
	scoring  Scoring
}

// New builds a catalog from definitions. Rows without id or title are dropped;
// later duplicates of an id are ignored.
func New(defs []Definition, scoring Scoring) *Catalog {
	c := &Catalog{byID: make(map[string]int), scoring: scoring}
	for _, d := range defs {
		d.ID = strings.TrimSpace(d.ID)
		d.Title = strings.TrimSpace(d.Title)
		if d.ID == "" || d.Title == "" {
			continue
		}
		if _, dup := c.byID[d.ID]; dup {
			continue
		}
		d.TagCandidates = cleanList(d.TagCandidates)
		d.Keywords = cleanList(d.Keywords)
		d.Aliases = cleanList(d.Aliases)
		c.byID[d.ID] = len(c.sections)
		c.sections = append(c.sections, d)
	}
	return c
}

// Builtin returns the catalog compiled into the binary.
func Builtin(scoring Scoring) *Catalog {
	return New(builtinSections, scoring)
}

// Load reads a YAML (or JSON) list of definitions from path. An empty path,
// an unreadable file or a file without usable rows yields the builtin catalog
// together with the reason it was not used.
func Load(path string, scoring Scoring) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(scoring), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Builtin(scoring), fmt.Errorf("read section catalog %s: %w", path, err)
	}
	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return Builtin(scoring), fmt.Errorf("parse section catalog %s: %w", path, err)
	}
	c := New(defs, scoring)
	if len(c.sections) == 0 {
		return Builtin(scoring), fmt.Errorf("section catalog %s has no usable rows", path)
	}
	return c, nil
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.sections))
	copy(out, c.sections)
	return out
}

// ByID looks up a section by its id.
func (c *Catalog) ByID(id string) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.sections[i], true
}

// Selection is the routing outcome for one question.
type Selection struct {
	Sections   []Definition
	Reasons    map[string]string
	Unresolved []string
}

// Select routes a question to at most maxSections sections. Explicit queries
// are honoured first, keyword ranking fills the remaining slots, and the
// default set is used only when nothing else matched. Explicit queries that
// match no section are returned in Unresolved.
func (c *Catalog) Select(question string, explicit []string, maxSections int) Selection {
	if maxSections <= 0 {
		maxSections = DefaultMaxSections
	}
	sel := Selection{Reasons: make(map[string]string)}
	var ids []string
	taken := make(map[string]bool)

	for _, q := range explicit {
		d, ok := c.match(q)
		if !ok {
			sel.Unresolved = append(sel.Unresolved, q)
			continue
		}
		if taken[d.ID] {
			continue
		}
		taken[d.ID] = true
		ids = append(ids, d.ID)
		sel.Reasons[d.ID] = ReasonExplicit + ": " + strings.TrimSpace(q)
	}

	if len(ids) < maxSections {
		for _, d := range c.rank(question) {
			if len(ids) >= maxSections {
				break
			}
			if taken[d.ID] {
				continue
			}
			taken[d.ID] = true
			ids = append(ids, d.ID)
			sel.Reasons[d.ID] = ReasonKeyword
		}
	}

	if len(ids) == 0 {
		for _, id := range DefaultSectionIDs {
			if len(ids) >= maxSections {
				break
			}
			if _, ok := c.byID[id]; !ok {
				continue
			}
			ids = append(ids, id)
			sel.Reasons[id] = ReasonDefault
		}
	}

	for _, id := range ids {
		sel.Sections = append(sel.Sections, c.sections[c.byID[id]])
	}
	return sel
}

// match resolves one explicit query: exact id first, then containment in
// either direction against the title and aliases, in catalog order.
func (c *Catalog) match(query string) (Definition, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Definition{}, false
	}
	if i, ok := c.byID[q]; ok {
		return c.sections[i], true
	}
	nq := textnorm.FoldLoose(q)
	if nq == "" {
		return Definition{}, false
	}
	for _, d := range c.sections {
		for _, v := range append([]string{d.Title}, d.Aliases...) {
			nv := textnorm.FoldLoose(v)
			if nv == "" {
				continue
			}
			if strings.Contains(nv, nq) || strings.Contains(nq, nv) {
				return d, true
			}
		}
	}
	return Definition{}, false
}

type scored struct {
	score int
	index int
}

// rank orders sections by keyword overlap with the question. Sections with
// no keyword hit are excluded; the priority bias only lifts sections that
// already matched.
func (c *Catalog) rank(question string) []Definition {
	nq := textnorm.FoldLoose(question)
	if nq == "" {
		return nil
	}
	var hits []scored
	for i, d := range c.sections {
		score := 0
		for _, kw := range d.Keywords {
			nk := textnorm.FoldLoose(kw)
			if nk != "" && strings.Contains(nq, nk) {
				score += c.scoring.KeywordWeight
			}
		}
		if score <= 0 {
			continue
		}
		if c.scoring.PriorityPrefix != "" && strings.HasPrefix(d.ID, c.scoring.PriorityPrefix) {
			score += c.scoring.PriorityBias
		}
		hits = append(hits, scored{score: score, index: i})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].index < hits[b].index
	})
	out := make([]Definition, 0, len(hits))
	for _, h := range hits {
		out = append(out, c.sections[h.index])
	}
	return out
}

// Reorder applies an externally ranked id list to an existing selection.
// Unknown ids are ignored and sections missing from ranked keep their
// relative order after the ranked ones. It reports whether anything matched.
func (s Selection) Reorder(ranked []string) (Selection, bool) {
	pos := make(map[string]int, len(s.Sections))
	for i, d := range s.Sections {
		pos[d.ID] = i
	}
	out := Selection{Reasons: make(map[string]string, len(s.Reasons)), Unresolved: s.Unresolved}
	for k, v := range s.Reasons {
		out.Reasons[k] = v
	}
	used := make(map[string]bool)
	for _, id := range ranked {
		i, ok := pos[id]
		if !ok || used[id] {
			continue
		}
		used[id] = true
		out.Sections = append(out.Sections, s.Sections[i])
		out.Reasons[id] = ReasonRerank
	}
	if len(used) == 0 {
		return s, false
	}
	for _, d := range s.Sections {
		if !used[d.ID] {
			out.Sections = append(out.Sections, d)
		}
	}
	return out, true
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
