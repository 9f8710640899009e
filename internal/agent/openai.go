package agent

import (
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const apiKeyEnv = "OPENAI_API_KEY"

// NewOpenAIClient builds the production chat client from the environment.
func NewOpenAIClient() (ChatClient, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s is not set", apiKeyEnv)
	}
	return openai.NewClient(key), nil
}
