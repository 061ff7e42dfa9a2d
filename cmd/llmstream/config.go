package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the streaming client configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Println(cfgMgr.GetPath())
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if cfgMgr.Exists() {
		color.Yellow("Configuration already exists at: %s", cfgMgr.GetPath())
		return nil
	}

	if err := cfgMgr.CreateExample(); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	color.Green("Configuration written to: %s", cfgMgr.GetPath())
	color.Cyan("Fill in your API keys, then try: llmstream prompt \"hello\"")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration found. Run 'llmstream config init' to create one.")
		return nil
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-15s: %s\n", "Provider", cfg.Provider)
	fmt.Printf("  %-15s: %s\n", "Model", cfg.Model)
	fmt.Printf("  %-15s: %d\n", "Max Tokens", cfg.MaxTokens)
	if cfg.Temperature != nil {
		fmt.Printf("  %-15s: %g\n", "Temperature", *cfg.Temperature)
	}
	if cfg.Reasoning != "" {
		fmt.Printf("  %-15s: %s\n", "Reasoning", cfg.Reasoning)
	}
	if cfg.SystemPrompt != "" {
		fmt.Printf("  %-15s: %s\n", "System Prompt", cfg.SystemPrompt)
	}
	fmt.Printf("  %-15s: %s\n", "Config Path", cfgMgr.GetPath())

	fmt.Println("\nProviders:")
	for name, provider := range cfg.Providers {
		fmt.Printf("  - Name: %s\n", name)
		fmt.Printf("    API Key: %s\n", maskString(provider.APIKey))
		if provider.Endpoint != "" {
			fmt.Printf("    Endpoint: %s\n", provider.Endpoint)
		}
		if provider.Model != "" {
			fmt.Printf("    Model: %s\n", provider.Model)
		}
	}

	return nil
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
