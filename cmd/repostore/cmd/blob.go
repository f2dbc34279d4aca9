package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aweris/repostore"
)

var blobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Read and write blob stores",
}

var blobListCmd = &cobra.Command{
	Use:   "list <store>",
	Short: "List blobs with their size",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlobList,
}

var blobGetCmd = &cobra.Command{
	Use:   "get <store> <id>",
	Short: "Write a blob to stdout",
	Args:  cobra.ExactArgs(2),
	RunE:  runBlobGet,
}

var blobPutCmd = &cobra.Command{
	Use:   "put <store> [id] [file]",
	Short: "Store a blob",
	Long:  "Store the content of file, or stdin when no file is given. Without an id a new one is generated and printed.",
	Args:  cobra.RangeArgs(1, 3),
	RunE:  runBlobPut,
}

var blobRemoveCmd = &cobra.Command{
	Use:     "rm <store> <id>...",
	Aliases: []string{"remove"},
	Short:   "Remove blobs",
	Args:    cobra.MinimumNArgs(2),
	RunE:    runBlobRemove,
}

func init() {
	blobCmd.AddCommand(blobListCmd, blobGetCmd, blobPutCmd, blobRemoveCmd)
	rootCmd.AddCommand(blobCmd)
}

func openBlobs(cmd *cobra.Command, name string, readOnly bool) (repostore.BlobStore, error) {
	f, err := openFactory(cmd)
	if err != nil {
		return nil, err
	}
	return repostore.Blobs(f, name, storeOptions(readOnly)...)
}

func runBlobList(cmd *cobra.Command, args []string) error {
	s, err := openBlobs(cmd, args[0], true)
	if err != nil {
		return err
	}
	blobs, err := s.GetAll()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, b := range blobs {
		size, err := b.Size()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%d\n", b.ID(), size)
	}
	if len(blobs) == 0 {
		fmt.Fprintln(out, "(no blobs)")
	}
	return nil
}

func runBlobGet(cmd *cobra.Command, args []string) (err error) {
	s, err := openBlobs(cmd, args[0], true)
	if err != nil {
		return err
	}
	b, found, err := s.Get(args[1])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("blob %q not found in %s", args[1], args[0])
	}

	r, err := b.InputStream()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(cmd.OutOrStdout(), r)
	return err
}

func runBlobPut(cmd *cobra.Command, args []string) (err error) {
	s, err := openBlobs(cmd, args[0], false)
	if err != nil {
		return err
	}

	var b repostore.Blob
	if len(args) > 1 && args[1] != "-" {
		b, err = s.CreateWithID(args[1])
		if errors.Is(err, repostore.ErrAlreadyExists) {
			var found bool
			b, found, err = s.Get(args[1])
			if err == nil && !found {
				err = fmt.Errorf("blob %q disappeared while opening it", args[1])
			}
		}
	} else {
		b, err = s.Create()
	}
	if err != nil {
		return err
	}

	var src io.Reader = cmd.InOrStdin()
	if len(args) > 2 {
		f, err := os.Open(args[2])
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	w, err := b.OutputStream()
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return fmt.Errorf("write blob %s: %w", b.ID(), err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	logger.Debug("stored blob", zap.String("store", args[0]), zap.String("id", b.ID()))
	fmt.Fprintln(cmd.OutOrStdout(), b.ID())
	return nil
}

func runBlobRemove(cmd *cobra.Command, args []string) error {
	s, err := openBlobs(cmd, args[0], false)
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
