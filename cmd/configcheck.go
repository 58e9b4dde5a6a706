package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCheckCmd = &cobra.Command{
	RunE:  runConfigCheck,
	Use:   "config-check",
	Short: "report configuration problems without starting the server",
}

// runConfigCheck prints every configuration defect it can find, one per
// line. Missing gateway credentials show up here rather than on the
// first charge attempt.
func runConfigCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(".")
	if err != nil {
		return err
	}

	problems := cfg.Problems()
	if len(problems) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
		return nil
	}

	for _, p := range problems {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return fmt.Errorf("%d configuration problem(s)", len(problems))
}
