package intent

import (
	"context"
	"errors"
	"testing"

	"edinet_qa/pkg/core/prompt"
	"edinet_qa/pkg/core/sections"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply    string
	err      error
	calls    int
	provider string
	model    string
	prompt   string
	system   string
}

func (f *fakeCompleter) ExecutePrompt(_ context.Context, providerID, model, prompt, system string, _ int) (string, error) {
	f.calls++
	f.provider = providerID
	f.model = model
	f.prompt = prompt
	f.system = system
	return f.reply, f.err
}

func TestExtractOrganizations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"suffix name with period and topic", "トヨタ自動車の2024年3月期の事業等のリスクを教えて", []string{"トヨタ自動車"}},
		{"delimited names", "トヨタとホンダの業績を比較して", []string{"トヨタ", "ホンダ"}},
		{"comma list", "ソニーグループ、任天堂の課題", []string{"ソニーグループ", "任天堂"}},
		{"explicit codes win", "E02144 と e01777 の事業等のリスク、トヨタ自動車も", []string{"E02144", "E01777"}},
		{"securities code label", "証券コード：７２０３ の有報", []string{"7203"}},
		{"stopwords only", "有価証券報告書について教えて", nil},
		{"period only", "2024年3月期の有報を見たい", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractOrganizations(tt.text))
		})
	}
}

func TestExtractPeriods(t *testing.T) {
	got := ExtractPeriods("２０２４年３月期と2023/3期、2022-12期、2021.6期 と 2020/9 と 2024年3月期、2024年13月期")
	assert.Equal(t, []Period{
		{2024, 3}, {2023, 3}, {2022, 12}, {2021, 6}, {2020, 9},
	}, got)
}

func TestExtractFiscalYear(t *testing.T) {
	assert.Equal(t, 2023, ExtractFiscalYear("2023年度の配当政策"))
	assert.Equal(t, 2022, ExtractFiscalYear("FY2022 results"))
	assert.Equal(t, 2024, ExtractFiscalYear("2024年3月期"))
	assert.Zero(t, ExtractFiscalYear("最新の有報"))
}

func TestExtractSectionQueries(t *testing.T) {
	assert.Equal(t, []string{"2-4", "1-3-1", "事業等のリスク"}, ExtractSectionQueries("2-4 と 1-3-1 (2024-03-31) の事業等のリスク"))
}

func TestParse_RulesWhenNoModel(t *testing.T) {
	llm := &fakeCompleter{reply: `{"companies": ["X"]}`}
	p := NewParser(llm, nil)

	in := p.Parse(context.Background(), Request{
		Text:    "2024年3月期の事業等のリスクは？",
		History: []Turn{{Role: "user", Content: "トヨタ自動車について"}, {Role: "assistant", Content: "はい"}},
	})

	assert.Zero(t, llm.calls)
	assert.Equal(t, SourceRule, in.Source)
	assert.Equal(t, []string{"トヨタ自動車"}, in.Organizations)
	assert.Equal(t, []Period{{2024, 3}}, in.ReportPeriods)
	assert.Equal(t, []string{"事業等のリスク"}, in.SectionQueries)
	assert.False(t, in.NeedsClarification)
}

func TestParse_RulesNeedClarification(t *testing.T) {
	in := NewParser(nil, nil).Parse(context.Background(), Request{Text: "有価証券報告書について教えて"})

	assert.True(t, in.NeedsClarification)
	assert.NotEmpty(t, in.ClarificationReason)
	assert.Empty(t, in.Organizations)
}

func TestParse_LLM(t *testing.T) {
	llm := &fakeCompleter{reply: "```json\n" + `{
  "companies": ["トヨタ自動車", " "],
  "fiscal_year": "2023",
  "report_periods": [{"year": 2024, "month": "3"}, {"year": 2024, "month": 13}, {"year": 2024, "month": 3}],
  "sections": ["2-4"],
  "needs_clarification": false,
  "clarification_reason": ""
}` + "\n```"}
	p := NewParser(llm, nil)

	in := p.Parse(context.Background(), Request{Text: "トヨタのリスク", ProviderID: "openai", Model: "gpt-test"})

	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, "openai", llm.provider)
	assert.Equal(t, "gpt-test", llm.model)
	assert.Equal(t, SourceLLM, in.Source)
	assert.Equal(t, []string{"トヨタ自動車"}, in.Organizations)
	assert.Equal(t, 2023, in.FiscalYear)
	assert.Equal(t, []Period{{2024, 3}}, in.ReportPeriods)
	assert.Equal(t, []string{"2-4"}, in.SectionQueries)
}

func TestParse_LLMMergesRulePeriodsAndOrganizations(t *testing.T) {
	llm := &fakeCompleter{reply: `{"companies": [], "fiscal_year": null, "report_periods": [], "sections": []}`}
	in := NewParser(llm, nil).Parse(context.Background(), Request{
		Text:  "ホンダの2023年3月期と2024年3月期を比較",
		Model: "m",
	})

	assert.Equal(t, SourceLLM, in.Source)
	assert.Equal(t, []string{"ホンダ"}, in.Organizations)
	assert.Equal(t, []Period{{2023, 3}, {2024, 3}}, in.ReportPeriods)
	assert.Equal(t, reasonRuleOrgs, in.ClarificationReason)
	assert.False(t, in.NeedsClarification)
}

func TestParse_LLMFailuresFallBack(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeCompleter
	}{
		{"transport error", &fakeCompleter{err: errors.New("timeout")}},
		{"not json", &fakeCompleter{reply: "I cannot help with that."}},
		{"wrong shape", &fakeCompleter{reply: `{"companies": "トヨタ自動車"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewParser(tt.llm, nil).Parse(context.Background(), Request{Text: "任天堂の課題", Model: "m"})
			assert.Equal(t, 1, tt.llm.calls)
			assert.Equal(t, SourceRule, in.Source)
			assert.Equal(t, []string{"任天堂"}, in.Organizations)
		})
	}
}

func TestRecentUserTurns(t *testing.T) {
	var history []Turn
	for i := 0; i < 12; i++ {
		history = append(history, Turn{Role: "user", Content: string(rune('a' + i))})
	}
	history = append(history, Turn{Role: "user", Content: "  "})
	got := recentUserTurns(history)
	require.Len(t, got, 7)
	assert.Equal(t, "f", got[0])
}

func TestParse_PromptCarriesContext(t *testing.T) {
	llm := &fakeCompleter{reply: `{"companies":["任天堂"]}`}
	NewParser(llm, nil).Parse(context.Background(), Request{
		Text:     "任天堂の課題",
		History:  []Turn{{Role: "user", Content: "ゲーム業界について"}},
		Model:    "m",
		Sections: []sections.Definition{{ID: "2-2", Title: "経営方針"}},
	})
	assert.Contains(t, llm.prompt, `Recent user turns: ["ゲーム業界について"]`)
	assert.Contains(t, llm.prompt, `Section candidates: [{"id":"2-2","title":"経営方針"}]`)
	assert.Contains(t, llm.prompt, "Question: 任天堂の課題")
	assert.NotEmpty(t, llm.system)
}

func TestParse_BrokenPromptFallsBackToRules(t *testing.T) {
	lib := prompt.NewLibrary()
	require.NoError(t, lib.Register(&prompt.Template{ID: prompt.IntentID, UserTmpl: "{{.Missing}}"}))
	llm := &fakeCompleter{reply: `{"companies":["x"]}`}

	in := NewParser(llm, nil).WithPrompts(lib).Parse(context.Background(), Request{Text: "任天堂の課題", Model: "m"})
	assert.Equal(t, 0, llm.calls)
	assert.Equal(t, SourceRule, in.Source)
	assert.Equal(t, []string{"任天堂"}, in.Organizations)
}

func TestParse_HjsonReply(t *testing.T) {
	llm := &fakeCompleter{reply: "{\n companies: [\n トヨタ自動車\n ]\n fiscal_year: 2024\n}"}
	in := NewParser(llm, nil).Parse(context.Background(), Request{Text: "トヨタの2024年度のリスク", Model: "m"})
	assert.Equal(t, SourceLLM, in.Source)
	assert.Equal(t, []string{"トヨタ自動車"}, in.Organizations)
	assert.Equal(t, 2024, in.FiscalYear)
	assert.False(t, in.NeedsClarification)
}
