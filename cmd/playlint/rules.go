package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/metalagman/playlint/internal/report"
	"github.com/metalagman/playlint/internal/rules"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the built-in rules",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesDescribeCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTAGS\tDESCRIPTION")
			for _, r := range rules.Default().Select(tags, nil).All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID(), strings.Join(r.Tags(), ","), r.ShortDesc())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "only list rules whose id or tags match")
	return cmd
}

func rulesDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id>",
		Short: "Show a rule's description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := rules.Default().Get(args[0])
			if !ok {
				return fmt.Errorf("unknown rule %q", args[0])
			}
			style := "notty"
			if report.ColorEnabled(os.Stdout) {
				style = "dark"
			}
			out, err := glamour.Render(ruleMarkdown(r), style)
			if err != nil {
				return fmt.Errorf("render description: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func ruleMarkdown(r rules.Rule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n**%s**\n\n", r.ID(), r.ShortDesc())
	if desc := strings.TrimSpace(r.Description()); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}
	if tags := r.Tags(); len(tags) > 0 {
		fmt.Fprintf(&b, "Tags: `%s`\n", strings.Join(tags, "`, `"))
	}
	return b.String()
}
