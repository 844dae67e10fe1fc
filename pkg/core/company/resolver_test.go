package company

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func mustResolver(t *testing.T, csv string) *Resolver {
	t.Helper()
	r, err := FromBytes([]byte(csv), nil)
	require.NoError(t, err)
	return r
}

func codes(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Code)
	}
	sort.Strings(out)
	return out
}

func TestResolveMany_SubstringMatch(t *testing.T) {
	r := mustResolver(t, "edinet_code,company_name\nE00001,Example Foods Co\n")

	res := r.ResolveMany(context.Background(), []string{"Example Foods"}, "", nil, nil)

	require.Len(t, res, 1)
	assert.True(t, res[0].Resolved())
	assert.Equal(t, "E00001", res[0].Code)
	assert.Contains(t, res[0].Reason, "name-match")
}

func TestResolveMany_DisambiguatorPicksAmongTies(t *testing.T) {
	r := mustResolver(t, "edinet_code,company_name\nE00002,Example Co\nE00003,Example Co\n")
	var seen []Candidate
	d := DisambiguatorFunc(func(_ context.Context, question, query string, cands []Candidate) (string, error) {
		seen = cands
		return "E00003", nil
	})

	res := r.ResolveMany(context.Background(), []string{"Example Co"}, "Example Co risks", nil, d)

	require.Len(t, res, 1)
	assert.Equal(t, "E00003", res[0].Code)
	assert.Contains(t, res[0].Reason, "disambiguated")
	assert.Equal(t, []string{"E00002", "E00003"}, codes(seen))
}

func TestResolveMany_DisambiguatorMissLeavesAmbiguous(t *testing.T) {
	r := mustResolver(t, "edinet_code,company_name\nE00002,Example Co\nE00003,Example Co\n")

	tests := []struct {
		name string
		d    Disambiguator
	}{
		{"no disambiguator", nil},
		{"unknown code", DisambiguatorFunc(func(context.Context, string, string, []Candidate) (string, error) { return "E99999", nil })},
		{"error", DisambiguatorFunc(func(context.Context, string, string, []Candidate) (string, error) { return "", errors.New("boom") })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.ResolveMany(context.Background(), []string{"Example Co"}, "", nil, tt.d)
			require.Len(t, res, 1)
			assert.False(t, res[0].Resolved())
			assert.True(t, res[0].Ambiguous())
			assert.Equal(t, []string{"E00002", "E00003"}, codes(res[0].Candidates))
		})
	}
}

func TestResolveMany_SpellingVariantsShareCandidates(t *testing.T) {
	r := mustResolver(t, "edinet_code,company_name\nE00010,サンプル食品株式会社\nE00011,サンプル食品ホールディングス株式会社\n")

	variants := []string{"サンプル食品", "株式会社サンプル食品", "ｻﾝﾌﾟﾙ食品", "（株）サンプル食品"}
	want := codes(r.candidates(variants[0]))
	require.NotEmpty(t, want)
	for _, v := range variants[1:] {
		assert.Equal(t, want, codes(r.candidates(v)), v)
	}

	latin := mustResolver(t, "edinet_code,company_name\nE00020,Example Foods Co., Ltd.\n")
	assert.Equal(t, codes(latin.candidates("EXAMPLE FOODS")), codes(latin.candidates("ｅｘａｍｐｌｅ　ｆｏｏｄｓ Inc.")))
}

func TestResolveMany_DedupesQueriesAndCodes(t *testing.T) {
	r := mustResolver(t, "edinet_code,sec_code,company_name\nE00001,72030,Example Motors\n")

	res := r.ResolveMany(context.Background(), []string{"Example Motors", "example motors", "7203", "E00001"}, "", nil, nil)

	require.Len(t, res, 1)
	assert.Equal(t, "E00001", res[0].Code)
	assert.Equal(t, "Example Motors", res[0].Query)
}

func TestResolveMany_PrecedenceAndOrder(t *testing.T) {
	r := mustResolver(t, "EDINETコード,提出者種別,提出者名,証券コード\nE00001,内国法人,アルファ,13010\nE00002,内国法人,アルファベータ,13020\n")

	res := r.ResolveMany(context.Background(), []string{"1302", "アルファ", "ガンマ"}, "", nil, nil)

	require.Len(t, res, 3)
	assert.Equal(t, "E00002", res[0].Code)
	assert.Contains(t, res[0].Reason, MatchSecCode)
	assert.Equal(t, "E00001", res[1].Code, "exact name beats substring")
	assert.Contains(t, res[1].Reason, MatchExactName)
	assert.False(t, res[2].Resolved())
	assert.Empty(t, res[2].Candidates)
}

func TestResolveMany_FallbackEntries(t *testing.T) {
	r := mustResolver(t, "edinet_code,company_name\nE00001,Existing Co\n")
	fallback := []Entry{
		{Code: "E09999", Name: "Newly Listed Inc", SecCode: "9999"},
	}

	res := r.ResolveMany(context.Background(), []string{"Newly Listed", "E08888"}, "", fallback, nil)

	require.Len(t, res, 2)
	assert.Equal(t, "E09999", res[0].Code)
	assert.Contains(t, res[0].Reason, SourceRecent)
	assert.Equal(t, "E08888", res[1].Code)
	assert.Contains(t, res[1].Reason, SourceCode)
}

func TestResolveMany_AmbiguousCapsCandidates(t *testing.T) {
	csv := "edinet_code,company_name\n"
	for i := 0; i < 10; i++ {
		csv += "E0010" + string(rune('0'+i)) + ",Tokyo Trading " + string(rune('A'+i)) + "\n"
	}
	r := mustResolver(t, csv)

	res := r.ResolveMany(context.Background(), []string{"Tokyo Trading"}, "", nil, nil)

	require.Len(t, res, 1)
	assert.True(t, res[0].Ambiguous())
	assert.Len(t, res[0].Candidates, maxAmbiguousCandidates)
}

func TestParseRegistry_Encodings(t *testing.T) {
	csv := "ダウンロード実行日,2024年06月01日現在,件数,2件\nEDINETコード,提出者種別,提出者名,提出者名（英字）,証券コード\nE00001,内国法人,サンプル食品株式会社,Sample Foods,13010\n"

	t.Run("utf8 with bom", func(t *testing.T) {
		rows, err := ParseRegistry(append([]byte{0xEF, 0xBB, 0xBF}, csv...))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, Row{Code: "E00001", SecCode: "1301", Name: "サンプル食品株式会社"}, rows[0])
	})

	t.Run("shift_jis", func(t *testing.T) {
		sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(csv))
		require.NoError(t, err)
		rows, err := ParseRegistry(sjis)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "サンプル食品株式会社", rows[0].Name)
	})

	t.Run("zip archive", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("EdinetcodeDlInfo.csv")
		require.NoError(t, err)
		_, err = w.Write([]byte(csv))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		rows, err := ParseRegistry(buf.Bytes())
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("no header", func(t *testing.T) {
		_, err := ParseRegistry([]byte("a,b\n1,2\n"))
		assert.ErrorIs(t, err, ErrNoHeader)
	})
}

func TestPickColumns_BOMOnHeader(t *testing.T) {
	code, sec, name := pickColumns([]string{"\ufeffEDINETコード", "提出者種別", "提出者名", "証券コード"})
	assert.Equal(t, 0, code)
	assert.Equal(t, 3, sec)
	assert.Equal(t, 2, name)
}
