// File: cmd/diagnostic/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-voicechat/internal/config"
	"github.com/iyunix/go-voicechat/internal/services/ai"
)

var rootCmd = &cobra.Command{
	Use:   "diagnostic",
	Short: "Smoke-test the configured AI provider",
	Long: `diagnostic calls the AI provider configured in the environment (or .env)
with the same gateway the server uses.

Examples:
  diagnostic complete "What is the capital of Madagascar?"
  diagnostic stream "Tell me a short story"
  diagnostic transcribe ./voice.m4a`,
	SilenceUsage: true,
}

var (
	modelOverride string
	systemPrompt  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(completeCmd, streamCmd, transcribeCmd)

	rootCmd.PersistentFlags().StringVar(&modelOverride, "model", "", "Chat model to use instead of OPENAI_CHAT_MODEL")
	rootCmd.PersistentFlags().StringVar(&systemPrompt, "system", "", "System prompt to use instead of AI_SYSTEM_PROMPT")
}

// newGateway builds the gateway from the environment plus flag overrides.
func newGateway() (*ai.OpenAIGateway, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenAIAPIKey
	aiConfig.BaseURL = cfg.OpenAIBaseURL
	aiConfig.ChatModel = cfg.OpenAIChatModel
	aiConfig.TranscriptionModel = cfg.OpenAITranscriptionModel
	aiConfig.LanguageModel = cfg.OpenAILanguageModel
	aiConfig.SystemPrompt = cfg.AISystemPrompt
	aiConfig.Temperature = cfg.AITemperature
	aiConfig.Timeout = cfg.AITimeout
	aiConfig.StreamTimeout = cfg.AIStreamTimeout
	if modelOverride != "" {
		aiConfig.ChatModel = modelOverride
	}
	if systemPrompt != "" {
		aiConfig.SystemPrompt = systemPrompt
	}
	return ai.NewOpenAIGateway(aiConfig)
}
