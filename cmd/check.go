package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/permitree/internal/audit"
	"github.com/darmiel/permitree/pkg/access"
)

var (
	checkFactory    = NewFactory()
	checkRequireAll bool
)

var checkCmd = &cobra.Command{
	Use:   "check [scope or branch path]...",
	Short: "Check scopes or whole subtrees against a grant list",
	Long: `Evaluates a permit and checks the given arguments against it.

Each argument is either an exact scope string, or a slash-separated key path
into the tree. A path ending on a leaf checks that single scope; a path
ending on a branch checks the branch aggregates (some/none/all). The command
exits non-zero when any check is negative: a leaf must be granted, a branch
needs at least one granted scope (--all: every scope).

The grant list comes from --grant, from the config's rules evaluated against
--attr, or both.`,
	Example: `  permitree check -f schema.yaml --grant todo.view todo.view
  permitree check -f schema.yaml --grant todo.view todo/action
  permitree check -c permitree.yaml --attr groups=[admins] todo/action --all`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, engine, cfg, err := checkFactory.Load()
		if err != nil {
			return err
		}

		granted, _, err := checkFactory.ResolveGranted(engine)
		if err != nil {
			return err
		}
		log.Debug().Msgf("evaluating permit with %d granted scope(s)", len(granted))

		auditor, err := checkFactory.Auditor(cfg)
		if err != nil {
			return err
		}
		defer auditor.Close()

		permit := tree.Permit(granted...)

		var denied []string
		for _, arg := range args {
			ok, err := checkOne(permit, tree, auditor, checkFactory.SubjectID, arg)
			if err != nil {
				return err
			}
			if !ok {
				denied = append(denied, arg)
			}
		}

		if len(denied) > 0 {
			return fmt.Errorf("denied: %s", strings.Join(denied, ", "))
		}
		return nil
	},
}

func checkOne(permit *access.Permit, tree *access.Branch, auditor audit.Auditor, subject, arg string) (bool, error) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	decide := func(scope string, granted bool) bool {
		icon := red("✖")
		if granted {
			icon = green("✔")
		}
		fmt.Printf("%s %s\n", icon, scope)

		if err := auditor.Log(audit.Entry{
			Time:    time.Now(),
			Action:  "permit.check",
			Subject: subject,
			Scope:   scope,
			Granted: granted,
		}); err != nil {
			log.Warn().Err(err).Msg("failed to write audit log entry")
		}
		return granted
	}

	// exact scope string first
	if known(tree, arg) {
		return decide(arg, permit.Check(arg)), nil
	}

	// then a slash-separated key path
	keys := strings.Split(arg, "/")
	if view, ok := permit.Is().At(keys...); ok {
		faint := color.New(color.Faint).SprintFunc()
		fmt.Printf("  %s\n", faint(fmt.Sprintf("some=%v none=%v all=%v", view.Some, view.None, view.All)))
		granted := view.Some
		if checkRequireAll {
			granted = view.All
		}
		return decide(arg, granted), nil
	}
	if parent, ok := permit.Is().At(keys[:len(keys)-1]...); ok {
		if node, ok := parent.Node(keys[len(keys)-1]); ok {
			return decide(node.Scope, node.OK), nil
		}
	}

	return false, fmt.Errorf("'%s' is neither a known scope nor a tree path", arg)
}

// known reports whether the tree declares the exact scope string.
func known(tree *access.Branch, scope string) bool {
	found := false
	tree.Each(func(n access.Node) {
		if n.Scope == scope {
			found = true
		}
	})
	return found
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkFactory.bindSchemaFlags(checkCmd.Flags())
	checkFactory.bindConfigFlag(checkCmd.Flags())
	checkFactory.bindGrantFlag(checkCmd.Flags())
	checkFactory.bindSubjectFlags(checkCmd.Flags())
	checkCmd.Flags().BoolVar(&checkRequireAll, "all", false,
		"Require every scope of a branch instead of at least one")
}
