package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/repostore"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write configuration stores",
}

var configGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a configuration store",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <name> [file]",
	Short: "Replace a configuration store",
	Long:  "Replace a configuration store with the XML document read from file, or stdin when no file is given.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	f, err := openFactory(cmd)
	if err != nil {
		return err
	}
	s, err := repostore.Config[repostore.RawXML](f, args[0], storeOptions(true)...)
	if err != nil {
		return err
	}

	doc, found, err := s.Get()
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("configuration %q is not set", args[0])
	}
	return printXML(cmd, doc)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	doc, err := readXML(cmd, args[1:])
	if err != nil {
		return err
	}

	f, err := openFactory(cmd)
	if err != nil {
		return err
	}
	s, err := repostore.Config[repostore.RawXML](f, args[0], storeOptions(false)...)
	if err != nil {
		return err
	}
	return s.Set(doc)
}
