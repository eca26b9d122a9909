package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/darmiel/permitree/pkg/access"
)

var treeFactory = NewFactory()

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the compiled access tree",
	Long: `Compiles the schema and prints the full tree: branches by key, leaves
with their scope and description, opaque pass-through values marked as such.`,
	Example: `  permitree tree -f schema.yaml
  permitree tree -f schema.yaml --prefix @ --spacer -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, _, _, err := treeFactory.Load()
		if err != nil {
			return err
		}

		printBranch(tree, 0)
		return nil
	},
}

func printBranch(b *access.Branch, depth int) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	indent := strings.Repeat("  ", depth)
	for _, key := range b.Keys() {
		if node, ok := b.Node(key); ok {
			line := fmt.Sprintf("%s%s %s", indent, key, cyan(node.Scope))
			if node.Description != "" {
				line += " " + faint(truncate(node.Description, 48))
			}
			fmt.Println(line)
			continue
		}
		if sub, ok := b.Branch(key); ok {
			fmt.Printf("%s%s\n", indent, bold(key))
			printBranch(sub, depth+1)
			continue
		}
		fmt.Printf("%s%s %s\n", indent, key, faint("(opaque)"))
	}
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeFactory.bindSchemaFlags(treeCmd.Flags())
	treeFactory.bindConfigFlag(treeCmd.Flags())
}
