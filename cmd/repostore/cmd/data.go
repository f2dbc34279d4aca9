package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/aweris/repostore"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Read and write data stores",
}

var dataListCmd = &cobra.Command{
	Use:   "list <store>",
	Short: "List entry ids",
	Args:  cobra.ExactArgs(1),
	RunE:  runDataList,
}

var dataGetCmd = &cobra.Command{
	Use:   "get <store> <id>",
	Short: "Print an entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runDataGet,
}

var dataPutCmd = &cobra.Command{
	Use:   "put <store> <id> [file]",
	Short: "Write an entry",
	Long:  "Write the XML document read from file, or stdin when no file is given, as entry id. Use - as id to generate one.",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runDataPut,
}

var dataRemoveCmd = &cobra.Command{
	Use:     "rm <store> <id>...",
	Aliases: []string{"remove"},
	Short:   "Remove entries",
	Args:    cobra.MinimumNArgs(2),
	RunE:    runDataRemove,
}

var dataClearCmd = &cobra.Command{
	Use:   "clear <store>",
	Short: "Remove all entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runDataClear,
}

func init() {
	dataCmd.AddCommand(dataListCmd, dataGetCmd, dataPutCmd, dataRemoveCmd, dataClearCmd)
	rootCmd.AddCommand(dataCmd)
}

func openData(cmd *cobra.Command, name string, readOnly bool) (repostore.DataStore[repostore.RawXML], error) {
	f, err := openFactory(cmd)
	if err != nil {
		return nil, err
	}
	return repostore.Data[repostore.RawXML](f, name, storeOptions(readOnly)...)
}

func runDataList(cmd *cobra.Command, args []string) error {
	s, err := openData(cmd, args[0], true)
	if err != nil {
		return err
	}
	all, err := s.GetAll()
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := cmd.OutOrStdout()
	for _, id := range ids {
		fmt.Fprintf(out, "%s\t%s\n", id, all[id].XMLName.Local)
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "(no entries)")
	}
	return nil
}

func runDataGet(cmd *cobra.Command, args []string) error {
	s, err := openData(cmd, args[0], true)
	if err != nil {
		return err
	}
	doc, found, err := s.Get(args[1])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("entry %q not found in %s", args[1], args[0])
	}
	return printXML(cmd, doc)
}

func runDataPut(cmd *cobra.Command, args []string) error {
	doc, err := readXML(cmd, args[2:])
	if err != nil {
		return err
	}
	s, err := openData(cmd, args[0], false)
	if err != nil {
		return err
	}

	id := args[1]
	if id == "-" {
		id, err = s.Add(doc)
	} else {
		err = s.Put(id, doc)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runDataRemove(cmd *cobra.Command, args []string) error {
	s, err := openData(cmd, args[0], false)
	if err != nil {
		return err
	}
	for _, id := range args[1:] {
		if err := s.Remove(id); err != nil {
			return err
		}
	}
	return nil
}

func runDataClear(cmd *cobra.Command, args []string) error {
	s, err := openData(cmd, args[0], false)
	if err != nil {
		return err
	}
	return s.Clear()
}
