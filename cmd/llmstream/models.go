package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/llmstream/providers"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models per provider",
	Run: func(cmd *cobra.Command, _ []string) {
		color.Blue("anthropic")
		for _, m := range []providers.ClaudeModel{
			providers.Claude37Sonnet,
			providers.Claude35SonnetLatest,
			providers.Claude35Sonnet,
			providers.Claude35HaikuLatest,
			providers.Claude35Haiku,
			providers.Claude3OpusLatest,
			providers.Claude3Opus,
			providers.Claude3Haiku,
		} {
			fmt.Printf("  %s\n", m)
		}

		color.Blue("openai")
		for _, m := range []providers.GptModel{
			providers.Gpt4o,
			providers.Gpt4o20240806,
			providers.ChatGpt4o,
			providers.Gpt4oMini,
			providers.O1,
			providers.O1Mini,
			providers.O1Preview,
			providers.O3Mini,
		} {
			fmt.Printf("  %s\n", m)
		}

		color.Blue("openrouter")
		fmt.Println("  any model id the gateway routes, e.g. anthropic/claude-3.5-sonnet")
	},
}
