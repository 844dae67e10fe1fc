package edinetqa

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"edinet_qa/pkg/core/company"
	"edinet_qa/pkg/core/prompt"
	"edinet_qa/pkg/core/utils"

	"go.uber.org/zap"
)

const (
	maxDisambiguationCandidates = 8
	disambiguationMaxTokens     = 32
	rerankMaxTokens             = 200
)

var edinetCodeInReply = regexp.MustCompile(`E\d{5}`)

func (rn *run) modelEnabled() bool {
	return rn.deps.LLM != nil && strings.TrimSpace(rn.model) != ""
}

// disambiguator asks the selected model to choose among tied candidates.
// It is nil when the caller did not select a model.
func (rn *run) disambiguator() company.Disambiguator {
	if !rn.modelEnabled() {
		return nil
	}
	return company.DisambiguatorFunc(func(ctx context.Context, question, query string, cands []company.Candidate) (string, error) {
		if len(cands) > maxDisambiguationCandidates {
			cands = cands[:maxDisambiguationCandidates]
		}
		user, system, err := rn.prompts.Render(prompt.DisambiguateID, disambiguationVars{Question: question, Query: query, Candidates: cands})
		if err != nil {
			return "", err
		}
		out, err := rn.deps.LLM.ExecutePrompt(ctx, rn.providerID, rn.model, user, system, disambiguationMaxTokens)
		if err != nil {
			return "", err
		}
		return edinetCodeInReply.FindString(strings.ToUpper(utils.StripCodeFence(out))), nil
	})
}

type disambiguationVars struct {
	Question   string
	Query      string
	Candidates []company.Candidate
}

type sectionChoice struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// rerankSections lets the model reorder the selected sections. Only ids
// already selected are accepted; any failure keeps the original order.
func (rn *run) rerankSections(ctx context.Context) {
	if !rn.cfg.RouterLLMEnabled || !rn.modelEnabled() || len(rn.sel.Sections) < 2 {
		return
	}
	choices := make([]sectionChoice, 0, len(rn.sel.Sections))
	for _, d := range rn.sel.Sections {
		choices = append(choices, sectionChoice{ID: d.ID, Title: d.Title})
	}
	listJSON, _ := json.Marshal(choices)
	user, system, err := rn.prompts.Render(prompt.RerankID, map[string]string{"Question": rn.question, "Sections": string(listJSON)})
	if err != nil {
		rn.logger.Warn("section re-rank prompt unavailable", zap.Error(err))
		return
	}
	out, err := rn.deps.LLM.ExecutePrompt(ctx, rn.providerID, rn.model, user, system, rerankMaxTokens)
	if err != nil {
		rn.logger.Warn("section re-rank failed", zap.Error(err))
		return
	}
	var ranked []string
	if _, err := utils.SmartParse(out, &ranked); err != nil {
		rn.logger.Warn("section re-rank reply unusable", zap.Error(err))
		return
	}
	if sel, ok := rn.sel.Reorder(ranked); ok {
		rn.sel = sel
	}
}
