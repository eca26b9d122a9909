package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateFactory = NewFactory()

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config or schema file",
	Long: `Loads the config (or a bare schema), compiles the tree and the rules,
and cross-checks that every scope the rules grant is declared by the schema.`,
	Example: `  permitree validate -c permitree.yaml
  permitree validate -f schema.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, _, _, err := validateFactory.Load()
		if err != nil {
			return err
		}
		log.Info().Msgf("Configuration is valid (%d scope(s) declared).", len(tree.Scopes()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateFactory.bindConfigFlag(validateCmd.Flags())
	validateFactory.bindSchemaFlags(validateCmd.Flags())
}
