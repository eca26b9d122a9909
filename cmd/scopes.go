package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/permitree/pkg/access"
)

var scopesFactory = NewFactory()

var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "List every scope the schema declares",
	Long: `Compiles the schema and lists all leaf scopes in tree order.
With --grant, an additional column shows the decision for that grant list.`,
	Example: `  permitree scopes -f schema.yaml
  permitree scopes -f schema.yaml --grant todo.view,todo.action.create
  permitree scopes -c permitree.yaml --attr groups=[admins]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, engine, _, err := scopesFactory.Load()
		if err != nil {
			return err
		}

		granted, _, err := scopesFactory.ResolveGranted(engine)
		if err != nil {
			return err
		}
		withDecision := len(granted) > 0 || engine != nil

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		header := table.Row{"Scope", "Description"}
		if withDecision {
			header = append(header, "Granted")
		}
		t.AppendHeader(header)

		permit := tree.Permit(granted...)
		tree.Each(func(n access.Node) {
			row := table.Row{n.Scope, truncate(n.Description, 64)}
			if withDecision {
				row = append(row, permit.Check(n.Scope))
			}
			t.AppendRow(row)
		})
		t.Render()

		log.Debug().Msgf("%d scope(s) declared", len(tree.Scopes()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scopesCmd)

	scopesFactory.bindSchemaFlags(scopesCmd.Flags())
	scopesFactory.bindConfigFlag(scopesCmd.Flags())
	scopesFactory.bindGrantFlag(scopesCmd.Flags())
	scopesFactory.bindSubjectFlags(scopesCmd.Flags())
}
