package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/repostore"
)

// readXML parses the document in files[0], or stdin when files is empty.
func readXML(cmd *cobra.Command, files []string) (repostore.RawXML, error) {
	var doc repostore.RawXML

	var data []byte
	var err error
	if len(files) > 0 && files[0] != "-" {
		data, err = os.ReadFile(files[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return doc, err
	}

	err = repostore.XMLCodec.Unmarshal(data, &doc)
	return doc, err
}

func printXML(cmd *cobra.Command, doc repostore.RawXML) error {
	data, err := repostore.XMLCodec.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(append(data, '\n'))
	return err
}
