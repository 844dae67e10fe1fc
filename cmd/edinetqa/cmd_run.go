package main

import (
	"fmt"
	"strings"

	"edinet_qa/pkg/core/skill"
	"edinet_qa/pkg/core/skill/edinetqa"

	"github.com/spf13/cobra"
)

var (
	runProvider string
	runModel    string
)

var runCmd = &cobra.Command{
	Use:   "run [question]",
	Short: "Answer one question and print the evidence report",
	Example: `  edinetqa run "トヨタ自動車の2024年3月期の事業等のリスク"
  edinetqa run --provider openai --model gpt-4o-mini "ソニーグループとパナソニックの研究開発活動"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runProvider, "provider", "", "language model provider id (openai, azure_openai, deepseek, anthropic, google)")
	runCmd.Flags().StringVar(&runModel, "model", "", "model name; enables model-assisted parsing")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	s, ok := a.registry.Get(edinetqa.ID)
	if !ok {
		return fmt.Errorf("skill %s not registered", edinetqa.ID)
	}
	report := s.Run(cmd.Context(), strings.Join(args, " "), nil, &skill.Context{ProviderID: runProvider, Model: runModel})
	fmt.Fprint(cmd.OutOrStdout(), report)
	return nil
}
