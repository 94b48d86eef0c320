package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

const defaultOllamaModel = "llama3.1"

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// OllamaClient runs prompts against a local Ollama server.
type OllamaClient struct {
	client  *ollama.Client
	model   string
	timeout time.Duration
}

// NewOllamaClient talks to baseURL, or to OLLAMA_HOST when baseURL is empty.
func NewOllamaClient(model, baseURL string, timeout time.Duration) (*OllamaClient, error) {
	if model == "" {
		model = defaultOllamaModel
	}

	var client *ollama.Client
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse ollama url: %w", err)
		}
		client = ollama.NewClient(u, &http.Client{Timeout: timeout})
	} else {
		var err error
		client, err = ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
	}

	return &OllamaClient{client: client, model: model, timeout: timeout}, nil
}

func (o *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	options := map[string]interface{}{
		"temperature": 0.2,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	stream := false
	var response strings.Builder
	err := o.client.Generate(ctx, &ollama.GenerateRequest{
		Model:   o.model,
		Prompt:  req.Prompt,
		Stream:  &stream,
		Options: options,
	}, func(res ollama.GenerateResponse) error {
		response.WriteString(res.Response)
		return nil
	})
	if err != nil {
		return "", modelCallError("ollama", err)
	}

	// reasoning models prefix their answer with a think block
	return strings.TrimSpace(thinkBlock.ReplaceAllString(response.String(), "")), nil
}
