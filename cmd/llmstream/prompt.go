package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/llmstream"
	"github.com/Davincible/llmstream/internal/config"
)

var (
	flagProvider    string
	flagModel       string
	flagSystem      string
	flagReasoning   string
	flagMaxTokens   int
	flagTemperature float64
)

var promptCmd = &cobra.Command{
	Use:   "prompt [text...]",
	Short: "Stream a completion for a prompt",
	Long:  `Send a prompt to the configured provider and stream the reply to stdout.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPrompt,
}

func init() {
	promptCmd.Flags().StringVarP(&flagProvider, "provider", "p", "", "provider to use (anthropic, openai, openrouter)")
	promptCmd.Flags().StringVarP(&flagModel, "model", "m", "", "model to use")
	promptCmd.Flags().StringVarP(&flagSystem, "system", "s", "", "system prompt")
	promptCmd.Flags().StringVarP(&flagReasoning, "reasoning", "r", "", "reasoning effort (low, medium, high)")
	promptCmd.Flags().IntVar(&flagMaxTokens, "max-tokens", 0, "maximum tokens to generate")
	promptCmd.Flags().Float64VarP(&flagTemperature, "temperature", "t", 0, "sampling temperature")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg := cfgMgr.Get()
	applyFlagOverrides(cmd, cfg)

	opts, err := cfg.PromptOptions()
	if err != nil {
		return err
	}

	llm, err := cfg.NewLLM()
	if err != nil {
		return err
	}

	prompt := strings.Join(args, " ")
	logger.Debug("sending prompt",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"tokens", estimateTokens(prompt))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stream, err := llm.Prompt(ctx, []llmstream.Message{llmstream.User(prompt)}, opts)
	if err != nil {
		return err
	}
	defer stream.Close()

	return render(stream)
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if flagProvider != "" {
		cfg.Provider = flagProvider
		if flagModel == "" {
			cfg.Model = config.DefaultModels[cfg.Provider]
		}
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagSystem != "" {
		cfg.SystemPrompt = flagSystem
	}
	if flagReasoning != "" {
		cfg.Reasoning = flagReasoning
	}
	if flagMaxTokens > 0 {
		cfg.MaxTokens = flagMaxTokens
	}
	if cmd.Flags().Changed("temperature") {
		t := flagTemperature
		cfg.Temperature = &t
	}
}

// render prints tokens as they arrive; thinking is dimmed, and assembled tool
// calls are reported once the stream ends.
func render(stream llmstream.Stream) error {
	thinking := color.New(color.Faint)
	toolColor := color.New(color.FgYellow)

	var calls []llmstream.Chunk
	for {
		chunk, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch chunk := chunk.(type) {
		case llmstream.Token:
			fmt.Print(string(chunk))
		case llmstream.Thinking:
			thinking.Print(string(chunk))
		case llmstream.ToolCall:
			calls = append(calls, chunk)
		}
	}
	fmt.Println()

	for _, chunk := range llmstream.Merge(calls) {
		call, ok := chunk.(llmstream.ToolCall)
		if !ok {
			continue
		}
		toolColor.Printf("tool call: %s(%s)\n", call.Name, call.Arguments)
	}

	return nil
}
