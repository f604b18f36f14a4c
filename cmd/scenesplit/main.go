package main

import (
	"context"
	"fmt"
	"os"

	"github.com/echohive42/video-scene-splitter/internal/config"
	"github.com/echohive42/video-scene-splitter/internal/logging"
	"github.com/echohive42/video-scene-splitter/internal/oracle"
	"github.com/echohive42/video-scene-splitter/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool

	outputDir string
	report    string
	stride    int
	batchSize int
	threshold float64
	model     string
	noOracle  bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scenesplit",
	Short: "scenesplit - split a video into scenes",
	Long: "Splits a video into contiguous scenes by sampling frames, scoring adjacent-frame\n" +
		"difference, and cross-checking batches against a vision oracle. Writes one clip\n" +
		"per scene plus a text report of boundaries and rationale.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Pick up OPENAI_API_KEY and friends from a local .env, if present
		if err := godotenv.Load(); err != nil {
			log.Debug().Msg("no .env file found, using environment variables")
		}

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	splitCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for scene clips")
	splitCmd.Flags().StringVar(&report, "report", "", "path for the scene analysis report")
	splitCmd.Flags().IntVar(&stride, "stride", 0, "sample every Nth frame")
	splitCmd.Flags().IntVar(&batchSize, "batch-size", 0, "sampled frames per analysis batch")
	splitCmd.Flags().Float64Var(&threshold, "threshold", 0, "frame-diff change threshold (0-255)")
	splitCmd.Flags().StringVar(&model, "model", "", "oracle model name")
	splitCmd.Flags().BoolVar(&noOracle, "no-oracle", false, "skip the vision oracle, use frame diff only")

	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(probeCmd)
}

var splitCmd = &cobra.Command{
	Use:   "split [input video]",
	Short: "Split a video into per-scene clips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		applyFlags(cfg)

		client := buildOracle(cfg)

		pipe, err := pipeline.New(log.Logger, cfg, client)
		if err != nil {
			return err
		}

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("analyzing frames"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		pipe.OnProgress(func(processed, total int) {
			if total > 0 && bar.GetMax() != total {
				bar.ChangeMax(total)
			}
			_ = bar.Set(processed)
		})

		result, err := pipe.Run(cmd.Context(), args[0])
		_ = bar.Finish()
		if err != nil {
			return err
		}

		cliLog := logging.WithComponent("cli")
		cliLog.Info().
			Int("scenes", len(result.Scenes)).
			Str("output_dir", cfg.OutputDir).
			Str("report", result.ReportPath).
			Msg("split complete")

		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [input video]",
	Short: "Print video metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		pipe, err := pipeline.New(log.Logger, cfg, nil)
		if err != nil {
			return err
		}

		info, err := pipe.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("file:     %s\n", info.FilePath)
		fmt.Printf("size:     %dx%d\n", info.Width, info.Height)
		fmt.Printf("fps:      %.3f\n", info.FPS)
		fmt.Printf("frames:   %d\n", info.FrameCount)
		fmt.Printf("duration: %s\n", info.Duration)
		fmt.Printf("codec:    %s\n", info.VideoCodec)

		return nil
	},
}

// applyFlags overlays non-zero command-line flags onto the loaded config.
func applyFlags(cfg *config.Config) {
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if report != "" {
		cfg.ReportPath = report
	}
	if stride > 0 {
		cfg.Stride = stride
	}
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}
	if threshold > 0 {
		cfg.DiffThreshold = threshold
	}
	if model != "" {
		cfg.Oracle.Model = model
	}
	if noOracle {
		cfg.Oracle.Disabled = true
	}
}

// buildOracle creates the oracle client, or nil when disabled or
// unconfigured. A missing API key degrades to frame-diff-only analysis
// rather than aborting the run.
func buildOracle(cfg *config.Config) oracle.Client {
	if cfg.Oracle.Disabled {
		log.Info().Msg("oracle disabled, using frame diff only")
		return nil
	}

	client, err := oracle.NewChatClient(log.Logger, oracle.Config{
		Model:     cfg.Oracle.Model,
		BaseURL:   cfg.Oracle.BaseURL,
		APIKey:    os.Getenv(cfg.Oracle.APIKeyEnv),
		MaxTokens: cfg.Oracle.MaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Msg("oracle unavailable, using frame diff only")
		return nil
	}

	return client
}
