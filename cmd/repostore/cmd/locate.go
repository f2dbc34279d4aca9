package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/repostore"
)

var locateCmd = &cobra.Command{
	Use:   "locate <config|data|blob> <name>",
	Short: "Print where a store lives on disk",
	Long:  "Print the directory of a data or blob store, or the file of a configuration store. Stores of missing repositories print nothing and exit successfully unless --strict is set.",
	Args:  cobra.ExactArgs(2),
	RunE:  runLocate,
}

func init() {
	locateCmd.Flags().Bool("strict", false, "fail when the repository does not exist")
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	kind, err := repostore.ParseKind(args[0])
	if err != nil {
		return err
	}
	f, err := openFactory(cmd)
	if err != nil {
		return err
	}
	loc := repostore.Location{Kind: kind, Name: args[1], Owner: viper.GetString("repo")}

	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		path, err := f.Locate(loc)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	path, found, err := f.LookupLocation(loc)
	if err != nil {
		return err
	}
	if found {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
