package edinetqa

import (
	"fmt"
	"strings"

	"edinet_qa/pkg/core/intent"
	"edinet_qa/pkg/core/sections"

	"go.uber.org/zap"
)

const (
	reportTitle     = "EDINET filing evidence report"
	truncatedMarker = "...(truncated)"
	indent          = "    "
	usageExample    = "トヨタ自動車（E02144）の2024年3月期の「事業等のリスク」を教えて"
)

var basePolicy = []string{
	"Answer only from the text in the EVIDENCE block and name the company, period and section you rely on.",
	"DIAGNOSTICS describe how the evidence was gathered; they are not disclosure content.",
	"Quote figures and terms as written; do not convert units or fill in missing values.",
	"If the evidence does not cover part of the question, say so instead of guessing.",
}

var noEvidencePolicy = []string{
	"No section text was extracted. Do not answer the question from general knowledge.",
	"Tell the user the lookup failed, summarize the cause from DIAGNOSTICS, and ask them to re-specify the company (EDINET code or securities code), the fiscal period or the section.",
}

var noLookupPolicy = []string{
	"No filing was consulted. Do not answer the question from general knowledge.",
	"Ask the user for the information listed above before trying again.",
}

func (rn *run) header(b *strings.Builder) {
	b.WriteString(reportTitle + "\n")
	fmt.Fprintf(b, "run_id: %s\n", rn.id)
	fmt.Fprintf(b, "question: %s\n", oneLine(rn.question))
}

func (rn *run) renderConfigError(problems []string) string {
	var b strings.Builder
	rn.header(&b)
	b.WriteString("\n== CONFIGURATION ERROR ==\n")
	for _, p := range problems {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	b.WriteString("This is not retryable until the configuration is fixed.\n")
	b.WriteString("\n== POLICY ==\n")
	b.WriteString("- The EDINET lookup is not configured. Do not answer the question from general knowledge.\n")
	b.WriteString("- Tell the user which prerequisite is missing.\n")
	return b.String()
}

func (rn *run) renderClarification() string {
	var b strings.Builder
	rn.header(&b)
	b.WriteString("\n== CLARIFICATION NEEDED ==\n")
	if len(rn.in.Organizations) == 0 {
		reason := rn.in.ClarificationReason
		if reason == "" {
			reason = "no organization could be identified in the question"
		}
		fmt.Fprintf(&b, "- Missing company: %s.\n", reason)
	}
	for _, res := range rn.resolutions {
		if res.Resolved() {
			continue
		}
		if len(res.Candidates) == 0 {
			fmt.Fprintf(&b, "- %q: %s.\n", res.Query, res.Reason)
			continue
		}
		fmt.Fprintf(&b, "- %q is ambiguous (%s):\n", res.Query, res.Reason)
		for _, c := range res.Candidates {
			fmt.Fprintf(&b, "%s- %s\n", indent, candidateLine(c.Code, c.Name, c.SecCode))
		}
	}
	b.WriteString("Re-ask with the company name, EDINET code or securities code, and optionally the fiscal period and section.\n")
	fmt.Fprintf(&b, "Example: %s\n", usageExample)

	b.WriteString("\n== DIAGNOSTICS ==\n")
	rn.writeDiagnostics(&b, nil)

	b.WriteString("\n== POLICY ==\n")
	writeBullets(&b, noLookupPolicy)
	return b.String()
}

func (rn *run) renderEvidence(results []targetResult) string {
	var b strings.Builder
	rn.header(&b)

	b.WriteString("\n== EVIDENCE ==\n")
	extracted := 0
	for _, r := range results {
		extracted += r.extracted()
		rn.writeTarget(&b, r)
	}
	if extracted == 0 {
		b.WriteString("(no section text was extracted)\n")
	}

	b.WriteString("\n== DIAGNOSTICS ==\n")
	rn.writeDiagnostics(&b, results)

	b.WriteString("\n== POLICY ==\n")
	writeBullets(&b, basePolicy)
	if extracted == 0 {
		writeBullets(&b, noEvidencePolicy)
	}
	rn.logger.Info("report rendered", zap.Int("targets", len(results)), zap.Int("sections_extracted", extracted), zap.Int("errors", rn.errs.Len()))
	return b.String()
}

func (rn *run) writeTarget(b *strings.Builder, r targetResult) {
	fmt.Fprintf(b, "### %s | period %s\n", candidateLine(r.Code, r.Name, r.SecCode), r.periodLabel())
	if r.Filing == nil {
		fmt.Fprintf(b, "(no filing: %s)\n", r.Note)
		return
	}
	m := r.Filing
	fmt.Fprintf(b, "filing: %s | type %s | submitted %s | period end %s\n", m.DocID, m.DocTypeCode, m.SubmitDateTime, orDash(m.PeriodEnd))
	for _, s := range r.Sections {
		if s.Text == "" {
			fmt.Fprintf(b, "-- [%s] %s: not extracted (%s)\n", s.Def.ID, s.Def.Title, s.Reason)
			continue
		}
		fmt.Fprintf(b, "-- [%s] %s (tag %s)\n", s.Def.ID, s.Def.Title, s.Tag)
		b.WriteString(indentLines(clip(s.Text, rn.cfg.MaxSectionChars)))
		b.WriteString("\n")
	}
}

func (rn *run) writeDiagnostics(b *strings.Builder, results []targetResult) {
	in := rn.in
	fmt.Fprintf(b, "- intent: source=%s organizations=%s fiscal_year=%s periods=%s section_queries=%s\n",
		orDash(in.Source), list(in.Organizations), fiscalYear(in.FiscalYear), periods(in), list(in.SectionQueries))
	if in.ClarificationReason != "" && !in.NeedsClarification {
		fmt.Fprintf(b, "- intent note: %s\n", in.ClarificationReason)
	}
	for _, res := range rn.resolutions {
		if res.Resolved() {
			fmt.Fprintf(b, "- resolved %q -> %s %s (%s)\n", res.Query, res.Code, res.Name, res.Reason)
		}
	}
	fmt.Fprintf(b, "- sections: %s\n", selectionLine(rn.sel))
	if len(rn.sel.Unresolved) > 0 {
		fmt.Fprintf(b, "- unmatched section queries: %s\n", list(rn.sel.Unresolved))
	}
	for _, r := range results {
		label := fmt.Sprintf("%s %s", r.Code, r.periodLabel())
		if r.Filing != nil && r.Note != "" {
			fmt.Fprintf(b, "- %s: %s\n", label, r.Note)
		}
		for _, s := range r.Sections {
			if s.Cached {
				fmt.Fprintf(b, "- %s section %s: served from section cache\n", label, s.Def.ID)
			}
		}
	}

	errs := rn.errs.Sorted()
	if len(errs) == 0 {
		b.WriteString("- errors: none\n")
		return
	}
	fmt.Fprintf(b, "- errors (%d):\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(b, "%s- %s\n", indent, oneLine(e))
	}
}

func selectionLine(sel sections.Selection) string {
	if len(sel.Sections) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(sel.Sections))
	for _, d := range sel.Sections {
		parts = append(parts, fmt.Sprintf("%s %s [%s]", d.ID, d.Title, sel.Reasons[d.ID]))
	}
	return strings.Join(parts, "; ")
}

// clip limits text to limit runes and marks the cut.
func clip(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return strings.TrimRight(string(r[:limit]), " \n") + "\n" + truncatedMarker
}

func indentLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = indent + l
		}
	}
	return strings.Join(lines, "\n")
}

func candidateLine(code, name, sec string) string {
	s := code
	if name != "" && name != code {
		s += " " + name
	}
	if sec != "" {
		s += " (securities code " + sec + ")"
	}
	return s
}

func writeBullets(b *strings.Builder, lines []string) {
	for _, l := range lines {
		fmt.Fprintf(b, "- %s\n", l)
	}
}

func periods(in intent.Intent) string {
	if len(in.ReportPeriods) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(in.ReportPeriods))
	for _, p := range in.ReportPeriods {
		parts = append(parts, p.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func fiscalYear(y int) string {
	if y == 0 {
		return "-"
	}
	return fmt.Sprint(y)
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
