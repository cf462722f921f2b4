package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var (
	askJSON        bool
	askTopK        int
	askDocID       string
	askShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Retrieves the chunks nearest to the question and asks the configured
LLM to answer from them. The sources backing the answer are listed below it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from settings)")
	askCmd.Flags().StringVar(&askDocID, "doc", "", "restrict retrieval to one document id")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the context handed to the LLM")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}
	if askTopK < 0 {
		return fmt.Errorf("%w: --top-k must be positive", domain.ErrInvalidInput)
	}

	question := strings.Join(args, " ")
	answer, err := queryService.QueryWithOptions(cmd.Context(), question, driving.QueryOptions{
		Filter: domain.ChunkFilter{DocID: askDocID},
		TopK:   askTopK,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	outputAnswerText(cmd, answer)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	out := *answer
	if !askShowContext {
		out.Context = ""
	}
	if out.Sources == nil {
		out.Sources = []domain.Source{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Answer)

	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, src := range answer.Sources {
			cmd.Printf("  [%d] %s, Section/Page %d (%s)\n", i+1, src.Filename, src.UnitOrdinal, src.UnitTitle)
			cmd.Printf("      %s by %s\n", src.DocumentTitle, src.DocumentAuthor)
			if src.Excerpt != "" {
				cmd.Printf("      %q\n", src.Excerpt)
			}
		}
	}

	if askShowContext && answer.Context != "" {
		cmd.Println()
		cmd.Println("Context:")
		cmd.Println(answer.Context)
	}
}
