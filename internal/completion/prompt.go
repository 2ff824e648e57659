package completion

import (
	"fmt"
	"os"
	"strings"
)

// DefaultSystemPrompt is used when no prompt file is configured.
const DefaultSystemPrompt = "You are Real Estate GPT. Be direct, helpful, and accurate for US real estate investing. If you need more info, ask a short follow-up."

// LoadSystemPrompt reads the system prompt from path, falling back to the
// default when path is empty.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return DefaultSystemPrompt, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return DefaultSystemPrompt, nil
	}
	return prompt, nil
}
