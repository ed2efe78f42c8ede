package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docqa/internal/app"
	"docqa/internal/domain"
	"docqa/internal/extract"
	"docqa/internal/service"
)

var (
	queryK          int
	queryJSON       bool
	queryPromptOnly bool
)

var queryCmd = &cobra.Command{
	Use:   "query FILE QUESTION",
	Short: "Index a document and answer a single question",
	Long: `Index a document, retrieve the passages most relevant to QUESTION and
print the answer. Without a configured generator, or with --prompt-only, the
assembled prompt is printed instead.

Examples:
  docqa query paris.txt "What is Paris known for?"
  docqa query paris.txt "What is Paris known for?" --k 2 --json`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "Number of chunks to retrieve (defaults to retriever.top_k)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print JSON")
	queryCmd.Flags().BoolVar(&queryPromptOnly, "prompt-only", false, "Print the assembled prompt without calling the generator")
	rootCmd.AddCommand(queryCmd)
}

type queryOutput struct {
	Source     string        `json:"source"`
	Generation uint64        `json:"generation"`
	Answer     string        `json:"answer,omitempty"`
	Prompt     string        `json:"prompt,omitempty"`
	Sources    []queryResult `json:"sources"`
}

type queryResult struct {
	Sequence int     `json:"sequence"`
	Section  int     `json:"section"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := setupLogger(); err != nil {
		return err
	}
	svc, err := app.NewService(cfg, logger)
	if err != nil {
		return err
	}
	doc, err := extract.File(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	rep, err := svc.IngestDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", args[0], err)
	}

	k := queryK
	if k == 0 {
		k = cfg.Retriever.TopK
	}
	question := args[1]
	out := queryOutput{Source: rep.Source}
	var res domain.RetrievalResult
	if queryPromptOnly || !svc.HasGenerator() {
		res, err = svc.AnswerContext(ctx, question, k)
		if err != nil {
			return err
		}
		out.Prompt = svc.BuildPrompt(res, question)
	} else {
		var ans service.Answer
		ans, err = svc.Ask(ctx, question, k)
		if err != nil {
			return err
		}
		res = ans.Result
		out.Answer = ans.Text
	}
	out.Generation = res.Generation
	for _, r := range res.Results {
		out.Sources = append(out.Sources, queryResult{Sequence: r.Chunk.Sequence, Section: r.Chunk.Section, Score: r.Score, Text: r.Chunk.Text})
	}

	w := cmd.OutOrStdout()
	if queryJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if out.Answer != "" {
		fmt.Fprintln(w, out.Answer)
		fmt.Fprintln(w)
		for _, s := range out.Sources {
			fmt.Fprintf(w, "[#%d %.3f] %s\n", s.Sequence, s.Score, s.Text)
		}
		return nil
	}
	fmt.Fprintln(w, out.Prompt)
	return nil
}
