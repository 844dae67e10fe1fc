// Package textnorm folds company names, section titles and free text into a
// comparable form. Registry rows and user input differ in character width,
// script variants, case and corporate decorations; every matcher in this
// module compares strings only after passing them through Fold.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// corporateMarkers are removed wherever they appear. NFKC has already turned
// "㈱" into "(株)" by the time these are applied.
var corporateMarkers = []string{
	"株式会社",
	"(株)",
	"有限会社",
	"(有)",
	"合同会社",
}

// trailingEntitySuffix matches romanized entity designators at the end of a name.
var trailingEntitySuffix = regexp.MustCompile(`(?:[\s,]+(?:co\.?,?\s*ltd\.?|co\.?|inc\.?|corp\.?|corporation|ltd\.?|limited|k\.k\.?))+$`)

var bracketChars = strings.NewReplacer(
	"[", "", "]", "",
	"【", "", "】", "",
	"(", "", ")", "",
	"「", "", "」", "",
)

// Fold returns the canonical comparison key for a company name or free-text
// token: NFKC, lower case, corporate decorations and all whitespace removed.
func Fold(s string) string {
	out := strings.ToLower(norm.NFKC.String(s))
	out = strings.TrimSpace(out)
	for _, m := range corporateMarkers {
		out = strings.ReplaceAll(out, m, "")
	}
	out = trailingEntitySuffix.ReplaceAllString(out, "")
	return stripSpace(out)
}

// FoldLoose is Fold plus removal of bracket characters. Section titles and
// aliases are matched with it so "【事業等のリスク】" equals "事業等のリスク".
func FoldLoose(s string) string {
	return bracketChars.Replace(Fold(s))
}

// NFKC applies compatibility normalization only. Pattern matching over raw
// user text runs on this form so full-width digits behave as ASCII.
func NFKC(s string) string {
	return norm.NFKC.String(s)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '　', ' ':
			return -1
		}
		return r
	}, s)
}
