package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type ollamaClient struct {
	endpoint     string
	defaultModel string
	client       *http.Client
	onMalformed  func(line []byte)
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllamaClient talks to an Ollama-compatible chat backend. onMalformed is
// invoked for every upstream line that fails to parse; those lines are
// dropped, not surfaced as stream errors. Pass nil to drop without notice.
func NewOllamaClient(endpoint, defaultModel string, onMalformed func(line []byte)) Client {
	return &ollamaClient{
		endpoint:     endpoint,
		defaultModel: defaultModel,
		client:       &http.Client{},
		onMalformed:  onMalformed,
	}
}

func (c *ollamaClient) model(requested string) string {
	if requested != "" {
		return requested
	}
	if c.defaultModel != "" {
		return c.defaultModel
	}
	return "llama3.2:latest"
}

func (c *ollamaClient) Chat(ctx context.Context, model string, messages []Message, fn func(Fragment) error) error {
	payload := ollamaChatRequest{
		Model:    c.model(model),
		Messages: messages,
		Stream:   true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chat backend returned status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			if c.onMalformed != nil {
				c.onMalformed(line)
			}
			continue
		}
		if err := fn(Fragment{Content: chunk.Message.Content, Done: chunk.Done}); err != nil {
			return err
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// Stream ended without a done marker; treat as completed.
	return fn(Fragment{Done: true})
}

func (c *ollamaClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("chat backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("chat backend returned status %s", resp.Status)
	}
	return nil
}

func (c *ollamaClient) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chat backend returned status %s", resp.Status)
	}
	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
