package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/qualifyodds/internal/lookup"
	"github.com/rewired-gh/qualifyodds/internal/models"
	"github.com/rewired-gh/qualifyodds/internal/storage"
)

func newLookupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Query the published signer lookup index",
	}

	var (
		name     string
		district int
	)
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a signer may be present in a district",
		Long: `Test a "Last, First" name against the lookup index. A negative answer
is certain; a positive answer may be a false positive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc models.LookupIndex
			found, err := storage.LoadJSON(a.cfg.Paths.LookupFile, &doc)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("lookup index not found: %s", a.cfg.Paths.LookupFile)
			}
			idx, err := lookup.Decode(&doc)
			if err != nil {
				return err
			}

			if _, ok := lookup.Key(name, district); !ok {
				return errors.New("name is empty")
			}
			if idx.Contains(name, district) {
				fmt.Fprintf(cmd.OutOrStdout(), "possible match: %s in district %d\n", lookup.NormalizeName(name), district)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "not found: %s in district %d\n", lookup.NormalizeName(name), district)
			}
			return nil
		},
	}
	checkCmd.Flags().StringVar(&name, "name", "", "signer name as \"Last, First\"")
	checkCmd.Flags().IntVar(&district, "district", 0, "district number")
	_ = checkCmd.MarkFlagRequired("name")
	_ = checkCmd.MarkFlagRequired("district")

	cmd.AddCommand(checkCmd)
	return cmd
}
