package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/darmiel/permitree/internal/policy"
)

var (
	whyFactory    = NewFactory()
	whyRuleFilter string
)

var whyCmd = &cobra.Command{
	Use:   "why",
	Short: "Explain why a subject resolves (or does not resolve) to scopes",
	Long: `Evaluates every rule against the subject and prints a detailed trace:
which rules matched, which conditions failed and why, and the final resolved
scope list. Useful for debugging why a subject is missing a scope or being
granted by the wrong rule.`,
	Example: `  # which rules does this subject match?
  permitree why -c permitree.yaml --subject alice --attr groups=[admins]

  # why is it not matching the 'writers' rule?
  permitree why -c permitree.yaml --attr groups=[guests] --rule writers`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, _, err := whyFactory.Load()
		if err != nil {
			return err
		}
		if engine == nil {
			return fmt.Errorf("no rules configured; 'why' needs a config file with rules")
		}

		_, trace, err := whyFactory.ResolveGranted(engine)
		if err != nil {
			return err
		}

		printTrace(trace)
		return nil
	},
}

func printTrace(trace *policy.Trace) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	subject := trace.Subject.ID
	if subject == "" {
		subject = "(anonymous)"
	}
	fmt.Printf("\n%s for Subject: %s (%d attribute(s))\n",
		bold("Resolution Trace"),
		bold(subject),
		len(trace.Subject.Attributes))

	fmt.Println(faint("---------------------------------------------------"))

	for _, res := range trace.Results {
		if whyRuleFilter != "" && res.Rule != whyRuleFilter {
			continue
		}

		icon := red("✖")
		if res.Matched {
			icon = green("✔")
		}

		fmt.Printf("%s Rule: %s\n", icon, bold(res.Rule))
		if res.Description != "" {
			fmt.Printf("  %s\n", faint(res.Description))
		}

		for _, line := range res.Conditions {
			indent := strings.Repeat("  ", line.Depth)

			lineIcon := red("✖")
			if line.Matched {
				lineIcon = green("✔")
			}

			expression := line.Expression
			if line.Label {
				expression = cyan(expression)
			}
			fmt.Printf("    %s%s %s\n", indent, lineIcon, expression)

			if line.Reason != "" {
				reason := line.Reason
				if line.Matched {
					reason = faint(reason)
				} else {
					reason = yellow(reason)
				}
				fmt.Printf("    %s  ↳ %s\n", indent, reason)
			}
		}

		if res.Matched {
			fmt.Printf("  grants: %s\n", cyan(strings.Join(res.Scopes, ", ")))
		}

		fmt.Println()
	}

	fmt.Println("---------------------------------------------------")
	if len(trace.Scopes) > 0 {
		fmt.Printf("Resolved: %s\n", bold(green(strings.Join(trace.Scopes, ", "))))
	} else {
		fmt.Printf("Resolved: %s\n", bold(red("no scopes")))
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(whyCmd)

	whyFactory.bindConfigFlag(whyCmd.Flags())
	whyFactory.bindSubjectFlags(whyCmd.Flags())
	whyCmd.Flags().StringVarP(&whyRuleFilter, "rule", "r", "", "Filter output to specific rule name (optional)")

	_ = whyCmd.MarkFlagRequired("config")
}
