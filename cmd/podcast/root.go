package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bobarin/podcast/internal/config"
	"github.com/bobarin/podcast/internal/pipeline"
	"github.com/bobarin/podcast/internal/storage"
	"github.com/spf13/cobra"
)

const defaultTopic = "Mumbai Indians"

type cliOptions struct {
	outDir         string
	scriptProvider string
	speechProvider string
	showPath       string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "podcast [topic...]",
		Short: "Turn a topic into a two-host Hinglish podcast episode",
		Long: `Fetches a Wikipedia summary for the topic, writes a two-speaker Hinglish
script with a language model and voices it line by line into one MP3.

Every stage degrades to a deterministic fallback, so a run without network
access or API keys still produces script.json and a placeholder audio file.

Examples:
  podcast "Mumbai Indians"
  podcast --out episodes/ --speech-provider elevenlabs Virat Kohli
  podcast                     # prompts for a topic`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(strings.Join(args, " "))
			if topic == "" {
				topic = promptTopic(cmd.InOrStdin(), cmd.OutOrStdout())
			}
			return run(cmd, opts, topic)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory (default: OUTPUT_DIR or .)")
	cmd.Flags().StringVar(&opts.scriptProvider, "script-provider", "", "script model provider: openai or gemini")
	cmd.Flags().StringVar(&opts.speechProvider, "speech-provider", "", "speech provider: openai, elevenlabs or cartesia")
	cmd.Flags().StringVar(&opts.showPath, "show", "", "YAML file describing the hosts and their voices")

	return cmd
}

// promptTopic reads one line, falling back to the default topic on empty input.
func promptTopic(in io.Reader, out io.Writer) string {
	fmt.Fprintf(out, "Enter a topic (default: %s): ", defaultTopic)
	line, _ := bufio.NewReader(in).ReadString('\n')
	if topic := strings.TrimSpace(line); topic != "" {
		return topic
	}
	return defaultTopic
}

func run(cmd *cobra.Command, opts *cliOptions, topic string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyOptions(cfg, opts); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generating podcast for: %s\n", topic)

	runner := pipeline.NewFromConfig(cfg)
	result, err := runner.Run(ctx, topic, storage.NewFileStore(cfg.OutputDir), func(ctx context.Context, stage string) {
		fmt.Fprintf(out, "  %s...\n", stage)
	})
	if errors.Is(err, pipeline.ErrNoContent) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Topic not found")
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Script: %s (%s, %d turns)\n", result.ScriptLocation, result.ScriptSource, len(result.Script.Conversation))
	if result.Audio.Placeholder {
		fmt.Fprintf(out, "Audio:  %s (placeholder, no speech was synthesized)\n", result.AudioLocation)
	} else {
		fmt.Fprintf(out, "Audio:  %s (%d turns voiced, %d bytes)\n", result.AudioLocation, result.Audio.TurnsVoiced, len(result.Audio.Data))
	}
	return nil
}

// applyOptions layers command-line flags over the environment configuration.
func applyOptions(cfg *config.Config, opts *cliOptions) error {
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}
	if opts.scriptProvider == "" && opts.speechProvider == "" && opts.showPath == "" {
		return nil
	}
	if opts.scriptProvider != "" {
		cfg.ScriptProvider = strings.ToLower(opts.scriptProvider)
	}
	if opts.speechProvider != "" {
		cfg.SpeechProvider = strings.ToLower(opts.speechProvider)
	}
	if opts.showPath != "" {
		cfg.ShowConfigPath = opts.showPath
	}
	return cfg.Resolve()
}
