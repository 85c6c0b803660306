// Package cli builds the tdtdecode subcommands. Each constructor takes
// the shared --config flag value and wires configuration, logging, the
// ONNX scorer, and the beam decoder together in its RunE.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tdtbeam/beam"
	"tdtbeam/internal/config"
	"tdtbeam/internal/logging"
	"tdtbeam/ngram"
	"tdtbeam/onnxscore"
)

// NewDecodeCmd returns the decode subcommand. Every input file is one
// utterance; the whole argument list is decoded as a single batch.
func NewDecodeCmd(cfgPath *string) *cobra.Command {
	var (
		asJSON  bool
		encoded bool
		nbest   bool
	)

	cmd := &cobra.Command{
		Use:   "decode <features.json>...",
		Short: "Decode feature files into ranked transcripts",
		Long: `Decode runs TDT beam search over one or more utterances.

Each input file holds a JSON array of frame vectors: mel features by
default, or encoder output frames with --encoded. Results go to stdout;
logs go to stderr.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if _, err := logging.Configure(cfg); err != nil {
				return err
			}

			opts, err := searchOptions(cfg)
			if err != nil {
				return err
			}
			if nbest {
				opts = append(opts, beam.WithReturnBest(false))
			}

			var vocab []string
			if cfg.Models.VocabPath != "" {
				if vocab, err = loadVocab(cfg.Models.VocabPath); err != nil {
					return err
				}
			}

			if err := onnxscore.Initialize(cfg.Models.RuntimeLibrary); err != nil {
				return err
			}
			defer func() { _ = onnxscore.Shutdown() }()

			engine, err := onnxscore.NewEngine(onnxscore.Config{
				EncoderPath:    cfg.Models.Encoder,
				DecoderPath:    cfg.Models.Decoder,
				JointPath:      cfg.Models.Joint,
				PredLayers:     cfg.Models.PredLayers,
				PredHidden:     cfg.Models.PredHidden,
				IntraOpThreads: cfg.Models.IntraOpThreads,
			})
			if err != nil {
				return err
			}
			defer engine.Close()

			dec, err := beam.New(engine, cfg.Models.VocabSize, cfg.Models.Durations, opts...)
			if err != nil {
				return err
			}

			batch := make([][][]float32, 0, len(args))
			lengths := make([]int, 0, len(args))
			for _, path := range args {
				frames, err := readFrames(path)
				if err != nil {
					return err
				}
				if !encoded {
					start := time.Now()
					if frames, err = engine.Encode(frames); err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					log.Debug().Str("file", path).Int("frames", len(frames)).
						Dur("took", time.Since(start)).Msg("encoded")
				}
				batch = append(batch, frames)
				lengths = append(lengths, len(frames))
			}

			start := time.Now()
			results, err := dec.Decode(cmd.Context(), batch, lengths)
			if err != nil {
				return err
			}
			log.Info().Int("utterances", len(results)).
				Dur("took", time.Since(start)).Msg("decode complete")

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, args, results, vocab); err != nil {
					return err
				}
			} else {
				writeText(out, args, results, vocab)
			}

			failed := 0
			for i, res := range results {
				if res.Err != nil {
					failed++
					log.Error().Str("file", args[i]).Err(res.Err).Msg("utterance failed")
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d utterances failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit results as JSON")
	cmd.Flags().BoolVar(&encoded, "encoded", false, "inputs hold encoder output frames, skip the encoder")
	cmd.Flags().BoolVar(&nbest, "nbest", false, "emit the full beam instead of the best hypothesis")
	return cmd
}

// NewInspectCmd returns the inspect subcommand, which prints the input
// and output tensors of ONNX model files.
func NewInspectCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <model.onnx>...",
		Short: "Print the tensor signature of ONNX model files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if _, err := logging.Configure(cfg); err != nil {
				return err
			}

			if err := onnxscore.Initialize(cfg.Models.RuntimeLibrary); err != nil {
				return err
			}
			defer func() { _ = onnxscore.Shutdown() }()

			out := cmd.OutOrStdout()
			for _, path := range args {
				info, err := onnxscore.Inspect(path)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, path)
				writeTensorInfo(out, "inputs", info.Inputs)
				writeTensorInfo(out, "outputs", info.Outputs)
			}
			return nil
		},
	}
}

// NewInitCmd returns the init subcommand, which writes a default
// configuration file to the --config path.
func NewInitCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *cfgPath
			if path == "" {
				return errors.New("init needs --config to name the file to write")
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

// searchOptions maps the [search] and [lm] sections onto decoder
// options. The language model loads here so a bad ARPA path fails
// before any ONNX session is created.
func searchOptions(cfg *config.Config) ([]beam.Option, error) {
	search, err := beam.ParseSearchType(cfg.Search.Type)
	if err != nil {
		return nil, err
	}

	opts := []beam.Option{
		beam.WithSearchType(search),
		beam.WithBeamSize(cfg.Search.BeamSize),
		beam.WithScoreNorm(cfg.Search.ScoreNorm),
		beam.WithReturnBest(cfg.Search.ReturnBest),
		beam.WithSoftmaxTemperature(cfg.Search.Temperature),
		beam.WithMAESNumSteps(cfg.Search.MAESNumSteps),
		beam.WithMAESPrefixAlpha(cfg.Search.MAESPrefixAlpha),
		beam.WithMAESExpansionBeta(cfg.Search.MAESExpansionBeta),
		beam.WithMAESExpansionGamma(cfg.Search.MAESExpansionGamma),
	}

	if cfg.LM.Path != "" {
		enc, err := ngram.ParseEncoding(cfg.LM.Encoding)
		if err != nil {
			return nil, err
		}
		model, err := ngram.Load(cfg.LM.Path)
		if err != nil {
			return nil, err
		}
		lm, err := ngram.NewAdapter(model, enc, ngram.WithTokenOffset(cfg.LM.TokenOffset))
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.LM.Path).Int("order", model.Order()).
			Float64("alpha", cfg.LM.Alpha).Msg("language model loaded")
		opts = append(opts, beam.WithLanguageModel(lm, cfg.LM.Alpha))
	}

	return opts, nil
}
