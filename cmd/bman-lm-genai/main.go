// Command bman-lm-genai is the default LM command bman invokes per spec
// §6's external process contract: read a prompt on stdin, call Gemini via
// google.golang.org/genai, write the response text to stdout, and exit
// non-zero on failure. It is what BMAN_LM_COMMAND points to when the
// operator hasn't overridden it. Grounded on the teacher's
// internal/perception/claude_cli_client.go for the CLI-subprocess LM
// client shape and internal/embedding/genai.go for the direct
// google.golang.org/genai client construction.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 120 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bman-lm-genai:", err)
		os.Exit(1)
	}
}

func run() error {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY (or GOOGLE_API_KEY) must be set")
	}

	model := os.Getenv("BMAN_LM_GENAI_MODEL")
	if model == "" {
		model = defaultModel
	}

	prompt, err := readPrompt()
	if err != nil {
		return fmt.Errorf("read prompt from stdin: %w", err)
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt on stdin is empty")
	}

	timeout := defaultTimeout
	if raw := os.Getenv("BMAN_LM_GENAI_TIMEOUT_SECONDS"); raw != "" {
		if secs, parseErr := time.ParseDuration(raw + "s"); parseErr == nil {
			timeout = secs
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return fmt.Errorf("generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return err
	}

	fmt.Print(text)
	return nil
}

func readPrompt() (string, error) {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty response content")
	}
	return b.String(), nil
}
