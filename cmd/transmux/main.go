// transmux translates text through pluggable translation providers.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ownlingo/transmux/config"
	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/cache"
	"github.com/ownlingo/transmux/translator/engine"
	"github.com/ownlingo/transmux/translator/history"
	"github.com/ownlingo/transmux/translator/langswap"
	"github.com/ownlingo/transmux/translator/providers"
	"github.com/ownlingo/transmux/translator/registry"
)

// Version information (set via -ldflags during build)
var version = "dev"

type options struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "transmux",
		Short: "Translate text through pluggable translation providers",
		Long: `transmux translates text through free and AI translation providers.

Structured payloads (a JSON array of objects with a "text" field) are split
into batches, dispatched concurrently and reassembled in order.

Providers:
  auto       google, then bing (configurable)
  google     Google Translate (free)
  bing       Microsoft Edge translator (free)
  openai     OpenAI, needs OPENAI_API_KEY
  anthropic  Anthropic, needs ANTHROPIC_API_KEY
  gemini     Google Gemini, needs GEMINI_API_KEY`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "transmux.yaml", "Settings file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newTranslateCmd(opts),
		newProvidersCmd(opts),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "transmux: %v\n", err)
		os.Exit(1)
	}
}

func newTranslateCmd(opts *options) *cobra.Command {
	var (
		provider string
		from     string
		to       string
		mode     string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text from the arguments or standard input",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				text = string(data)
			}

			eng, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			defer eng.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			resp := eng.Execute(ctx, &translator.TranslationRequest{
				Text:           text,
				Provider:       provider,
				SourceLanguage: from,
				TargetLanguage: to,
				Mode:           translator.Mode(mode),
			})

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else if resp.Success {
				fmt.Fprintln(cmd.OutOrStdout(), resp.TranslatedText)
			}

			if !resp.Success {
				return errors.New(resp.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", providers.AutoID, "Provider to translate with")
	cmd.Flags().StringVarP(&from, "from", "f", "", "Source language (default from settings)")
	cmd.Flags().StringVarP(&to, "to", "t", "", "Target language (default from settings)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(translator.ModeSimple), "Translation mode")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")

	return cmd
}

func newProvidersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the registered providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			reg := registry.New(zap.NewNop())
			defer reg.Close()
			providers.Register(reg, settings, nil)

			for _, id := range reg.IDs() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

// setup builds an engine from the settings file
func setup(opts *options) (*engine.Engine, *zap.Logger, error) {
	log, err := newLogger(opts.verbose)
	if err != nil {
		return nil, nil, err
	}

	settings, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	reg := registry.New(log)
	providers.Register(reg, settings, log)

	var detector langswap.Detector
	if settings.DetectionEnabled() {
		detector = langswap.NewLinguaDetector()
	}

	cfg := engine.DefaultConfig(reg)
	cfg.Swapper = langswap.New(detector, langswap.Config{
		OriginalSource: settings.OriginalSource,
		OriginalTarget: settings.OriginalTarget,
	})
	cfg.Cache = cache.New(settings.CacheSize)
	cfg.History = history.New(settings.HistorySize)
	cfg.DefaultSource = settings.DefaultSource
	cfg.DefaultTarget = settings.DefaultTarget
	cfg.SegmentRetry = settings.SegmentRetry.Config()
	cfg.Logger = log

	return engine.New(cfg), log, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
