package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-pitch/internal/domain"
)

func newRunCommand(c *cli) *cobra.Command {
	var (
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run [prospect description]",
		Short: "Draft, score and select an email for one prospect",
		Long: "Runs every persona against the prospect description and prints the report.\n" +
			"With no arguments, or with \"-\", the description is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "text" {
				return fmt.Errorf("unknown output format %q", output)
			}
			prospect, err := readProspect(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			a, err := c.build(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.shutdown(context.WithoutCancel(ctx)) }()

			result, err := a.orchestrator.Run(ctx, prospect)
			if err != nil {
				return err
			}
			if output == "text" {
				return writeText(cmd.OutOrStdout(), result)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or text")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the run after this long; 0 waits for per-call timeouts only")
	return cmd
}

func readProspect(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prospect from stdin: %w", err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, result *domain.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeText(w io.Writer, result *domain.RunResult) error {
	fmt.Fprintf(w, "Run %s\n", result.RunID)
	fmt.Fprintf(w, "Chosen agent: %d (score %d)\n\n", result.ChosenAgent, result.Score)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tFINAL\tRULE\tLLM\tCHARS")
	var chosen string
	for _, sd := range result.ScoredDetails {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\n",
			sd.AgentIndex, sd.Score.FinalScore, sd.Score.RuleScore, sd.Score.LLMScore, len([]rune(sd.Text)))
		if sd.AgentIndex == result.ChosenAgent {
			chosen = sd.Text
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nGeneration calls: %d, estimated cost: $%.4f\n", result.Costs.Calls, result.Costs.EstimatedCost)
	if chosen == "" {
		_, err := fmt.Fprintln(w, "\nNo draft was generated.")
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", chosen)
	return err
}
