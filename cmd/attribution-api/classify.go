package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"example.com/attribution/internal/attribution"
	"example.com/attribution/internal/kpi"
)

// classifyLine is one JSON line of input. Amount is optional and only
// feeds the revenue column of the summary.
type classifyLine struct {
	attribution.Input
	Amount float64 `json:"amount,omitempty"`
}

func newClassifyCmd() *cobra.Command {
	var (
		rulesFile string
		orgID     string
		quiet     bool
	)
	cmd := &cobra.Command{
		Use:   "classify [file]",
		Short: "Classify JSON-lines attribution inputs from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules(rulesFile)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			summary, err := runClassify(in, cmd.OutOrStdout(), rules.Classifier(orgID))
			if err != nil {
				return err
			}
			if !quiet {
				writeSummary(cmd.ErrOrStderr(), summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", os.Getenv("RULES_FILE"), "YAML rule file with refcode overrides")
	cmd.Flags().StringVar(&orgID, "org", "", "organization whose rule overrides apply")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the channel summary")
	return cmd
}

// runClassify writes one JSON result per non-blank input line.
func runClassify(r io.Reader, w io.Writer, c *attribution.Classifier) (attribution.Summary, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)

	var tally attribution.Tally
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var cl classifyLine
		if err := json.Unmarshal([]byte(line), &cl); err != nil {
			return attribution.Summary{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		res := c.Classify(cl.Input)
		tally.Add(res, cl.Amount)
		if err := enc.Encode(res); err != nil {
			return attribution.Summary{}, fmt.Errorf("write result: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return attribution.Summary{}, fmt.Errorf("read input: %w", err)
	}
	return tally.Summary(), nil
}

func writeSummary(w io.Writer, s attribution.Summary) {
	tw := bufio.NewWriter(w)
	defer tw.Flush()
	fmt.Fprintf(tw, "%-14s %8s %10s %14s\n", "CHANNEL", "COUNT", "REVENUE", "DETERMINISTIC")
	for _, ct := range s.Channels {
		fmt.Fprintf(tw, "%-14s %8d %10s %14d\n", ct.Channel, ct.Count, kpi.FormatCurrency(ct.Revenue), ct.DeterministicCount)
	}
	fmt.Fprintf(tw, "total=%d revenue=%s deterministic=%s attributed=%s\n",
		s.TotalCount, kpi.FormatCurrency(s.TotalRevenue), kpi.FormatRate(s.DeterministicRate), kpi.FormatRate(s.AttributedRate))
}
