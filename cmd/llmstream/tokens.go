package main

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens [text...]",
	Short: "Estimate the token count of a prompt",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(estimateTokens(strings.Join(args, " ")))
	},
}

// estimateTokens counts cl100k tokens. Providers tokenize differently, so
// this is an estimate, but close enough for budgeting.
func estimateTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// Rough fallback: about four characters per token.
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
