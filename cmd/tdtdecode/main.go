// Command tdtdecode runs beam-search decoding for token-and-duration
// transducer models exported to ONNX.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tdtbeam/internal/cli"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "tdtdecode",
		Short: "tdtdecode — beam search for token-and-duration transducer models",
		Long: `tdtdecode turns TDT transducer models exported to ONNX into ranked
transcripts. The configuration file names the encoder, decoder and joint
graphs; decode then accepts JSON feature files, one utterance each.

A KenLM-style ARPA file configured under [lm] enables shallow fusion
during the maes search.`,
		Example: `  tdtdecode init -c tdtdecode.toml
  tdtdecode inspect models/encoder.onnx
  tdtdecode decode -c tdtdecode.toml utterance.json
  tdtdecode decode -c tdtdecode.toml --json --nbest utterances/*.json`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.Version = version
	root.SetVersionTemplate("tdtdecode v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML)")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(cli.NewDecodeCmd(cfgPath))
	root.AddCommand(cli.NewInspectCmd(cfgPath))
	root.AddCommand(cli.NewInitCmd(cfgPath))

	return root.Execute()
}
