package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/permitree/internal/audit"
)

var resolveFactory = NewFactory()

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the granted-scope list for a subject",
	Long: `Evaluates the config's rules against the subject and prints the
resolved scope list, one scope per line (suitable for piping). Use 'why' for
the full evaluation trace.`,
	Example: `  permitree resolve -c permitree.yaml --subject alice --attr groups=[admins]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, cfg, err := resolveFactory.Load()
		if err != nil {
			return err
		}
		if engine == nil {
			return fmt.Errorf("no rules configured; 'resolve' needs a config file with rules")
		}

		granted, trace, err := resolveFactory.ResolveGranted(engine)
		if err != nil {
			return err
		}

		auditor, err := resolveFactory.Auditor(cfg)
		if err != nil {
			return err
		}
		defer auditor.Close()

		matched := 0
		for _, res := range trace.Results {
			if res.Matched {
				matched++
			}
		}
		if err := auditor.Log(audit.Entry{
			Time:    time.Now(),
			Action:  "rules.resolve",
			Subject: resolveFactory.SubjectID,
			Granted: len(granted) > 0,
			Metadata: map[string]any{
				"scopes":        granted,
				"matched_rules": matched,
			},
		}); err != nil {
			log.Warn().Err(err).Msg("failed to write audit log entry")
		}

		for _, scope := range granted {
			fmt.Println(scope)
		}
		log.Debug().Msgf("%d rule(s) matched, %d scope(s) resolved", matched, len(granted))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveFactory.bindConfigFlag(resolveCmd.Flags())
	resolveFactory.bindSubjectFlags(resolveCmd.Flags())
	resolveFactory.bindGrantFlag(resolveCmd.Flags())

	_ = resolveCmd.MarkFlagRequired("config")
}
