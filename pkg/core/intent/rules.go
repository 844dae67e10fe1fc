package intent

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"edinet_qa/pkg/core/textnorm"
)

const (
	minYear = 1990
	maxYear = 2100
)

var (
	edinetCodeRe  = regexp.MustCompile(`(?i)E\d{5}`)
	secCodeRe     = regexp.MustCompile(`証券コード\s*[:：]?\s*(\d{4})`)
	suffixNameRe  = regexp.MustCompile(`[\p{Han}\p{Hiragana}\p{Katakana}A-Za-z0-9・ー＆&\-]+?(?:株式会社|ホールディングス|グループ|HD|自動車)`)
	delimiterRe   = regexp.MustCompile(`[、,\n]|と|および|及び|ならびに`)
	topicTailRe   = regexp.MustCompile(`(?:の|を|は|が)?(?:事業|リスク|比較|分析|業績|強み|弱み|課題|概要|状況|について|有報|有価証券報告書|決算|財務|教えて|見せて|見て|調べて|知りたい|ください).*$`)
	leadingJoinRe = regexp.MustCompile(`^(?:と|および|及び|ならびに)`)
	secLabelRe    = regexp.MustCompile(`^証券コード\s*[:：]?\s*`)
	timeExprRe    = regexp.MustCompile(`(?i)(?:20\d{2}\s*(?:年\s*\d{1,2}\s*月期|[/.\-]\s*\d{1,2}\s*期?|年度|年)|fy\s*20\d{2}|\d{1,2}\s*月期)`)
	particleRe    = regexp.MustCompile(`^(?:の|を|は|が|で|に|も)+|(?:の|を|は|が|で|に|も)+$`)
	sectionIDRe   = regexp.MustCompile(`\d-\d(?:-\d)?`)

	periodPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(20\d{2})\s*年\s*(\d{1,2})\s*月期`),
		regexp.MustCompile(`(20\d{2})\s*/\s*(\d{1,2})\s*期`),
		regexp.MustCompile(`(20\d{2})\s*-\s*(\d{1,2})\s*期`),
		regexp.MustCompile(`(20\d{2})\s*\.\s*(\d{1,2})\s*期`),
		regexp.MustCompile(`(20\d{2})\s*/\s*(\d{1,2})(?:\D|$)`),
	}
	fiscalYearPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(20\d{2})\s*年度`),
		regexp.MustCompile(`fy\s*(20\d{2})`),
		regexp.MustCompile(`(20\d{2})\s*年`),
	}

	stopwords = map[string]bool{
		"有価証券報告書": true, "有報": true, "edinet": true, "api": true, "xbrl": true,
		"会社": true, "企業": true, "質問": true, "分析": true, "について": true,
		"教えて": true, "調べて": true, "見て": true, "して": true, "ください": true,
	}

	sectionLiterals = []string{"事業等のリスク", "サステナビリティ", "経営成績", "キャッシュ・フロー", "配当政策", "ガバナンス"}
)

// ExtractOrganizations finds organization mentions. Explicit EDINET codes
// and labelled securities codes win: when any is present only they are
// returned. Otherwise names ending in a corporate suffix come first,
// followed by delimiter-split tokens that survive topic trimming, period
// stripping and the stopword list.
func ExtractOrganizations(text string) []string {
	var codes []string
	seen := make(map[string]bool)
	add := func(list *[]string, s string) {
		key := textnorm.Fold(s)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		*list = append(*list, s)
	}

	for _, m := range edinetCodeRe.FindAllString(text, -1) {
		add(&codes, strings.ToUpper(m))
	}
	for _, m := range secCodeRe.FindAllStringSubmatch(textnorm.NFKC(text), -1) {
		add(&codes, m[1])
	}
	if len(codes) > 0 {
		return codes
	}

	var names []string
	for _, m := range suffixNameRe.FindAllString(text, -1) {
		if cleaned, ok := cleanToken(stripTimeExpressions(m)); ok {
			add(&names, cleaned)
		}
	}

	for _, part := range delimiterRe.Split(text, -1) {
		cleaned, ok := cleanToken(stripTimeExpressions(topicTailRe.ReplaceAllString(part, "")))
		if !ok || stopwords[textnorm.Fold(cleaned)] || overlapsAny(cleaned, names) {
			continue
		}
		add(&names, cleaned)
	}
	return names
}

// ExtractPeriods finds "<year>年<month>月期" style fiscal period ends,
// de-duplicated in order of first appearance. Out-of-range values are dropped.
func ExtractPeriods(text string) []Period {
	normalized := textnorm.NFKC(text)
	var out []Period
	seen := make(map[Period]bool)
	for _, re := range periodPatterns {
		for _, m := range re.FindAllStringSubmatch(normalized, -1) {
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			p := Period{Year: year, Month: month}
			if !p.Valid() || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// ExtractFiscalYear returns the first plausible fiscal-year mention, or 0.
func ExtractFiscalYear(text string) int {
	normalized := strings.ToLower(textnorm.NFKC(text))
	for _, re := range fiscalYearPatterns {
		m := re.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		if year, _ := strconv.Atoi(m[1]); year >= minYear && year <= maxYear {
			return year
		}
	}
	return 0
}

// ExtractSectionQueries returns section ids like "2-4" and well-known
// section names mentioned in text.
func ExtractSectionQueries(text string) []string {
	var hits []string
	for _, loc := range sectionIDRe.FindAllStringIndex(text, -1) {
		if isIDBoundary(text, loc[0]-1) && isIDBoundary(text, loc[1]) {
			hits = append(hits, text[loc[0]:loc[1]])
		}
	}
	for _, lit := range sectionLiterals {
		if strings.Contains(text, lit) {
			hits = append(hits, lit)
		}
	}
	return hits
}

// isIDBoundary reports whether the byte at i cannot extend a section id.
func isIDBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= '0' && c <= '9') && c != '-'
}

func stripTimeExpressions(s string) string {
	return timeExprRe.ReplaceAllString(textnorm.NFKC(s), "")
}

func cleanToken(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "。.!?()（）[]「」『』\"' 　")
	s = leadingJoinRe.ReplaceAllString(s, "")
	s = secLabelRe.ReplaceAllString(s, "")
	s = particleRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n <= 1 || n > 80 {
		return "", false
	}
	return s, true
}

// overlapsAny reports whether token contains, or is contained in, one of names.
func overlapsAny(token string, names []string) bool {
	t := textnorm.Fold(token)
	for _, n := range names {
		f := textnorm.Fold(n)
		if f != "" && (strings.Contains(t, f) || strings.Contains(f, t)) {
			return true
		}
	}
	return false
}

// recentUserTurns returns the user contents among the last eight turns.
func recentUserTurns(history []Turn) []string {
	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	var out []string
	for _, t := range history[start:] {
		if t.Role == "user" && strings.TrimSpace(t.Content) != "" {
			out = append(out, t.Content)
		}
	}
	return out
}
