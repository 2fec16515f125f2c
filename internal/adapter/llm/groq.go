package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nvelasco/homeline/internal/config"
	"github.com/nvelasco/homeline/internal/core/domain"
	"github.com/nvelasco/homeline/internal/core/port"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.3-70b-versatile"
)

// GroqParser converts free-form commands into update documents through
// the Groq OpenAI-compatible chat completions API. The conversion is a
// black box from the core's point of view: whatever JSON comes back is
// handed to the merge engine, whose tolerance rules absorb model
// sloppiness.
type GroqParser struct {
	apiKey       string
	model        string
	baseURL      string
	httpClient   *http.Client
	systemPrompt string
	logger       *zap.Logger
}

func NewGroqParser(cfg config.LLMConfig, registry *domain.Registry, logger *zap.Logger) *GroqParser {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := 30 * time.Second
	if cfg.TimeoutMillis > 0 {
		timeout = time.Duration(cfg.TimeoutMillis) * time.Millisecond
	}
	return &GroqParser{
		apiKey:       cfg.APIKey,
		model:        model,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		systemPrompt: buildSystemPrompt(registry),
		logger:       logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *GroqParser) Parse(ctx context.Context, command string) (*domain.UpdateDocument, error) {
	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: p.systemPrompt},
			{Role: "user", Content: command},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("groq api status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("groq api returned no choices")
	}

	content := parsed.Choices[0].Message.Content
	p.logger.Debug("llm: model output", zap.String("content", content))

	var doc domain.UpdateDocument
	if err := json.Unmarshal([]byte(extractJSON(content)), &doc); err != nil {
		return nil, fmt.Errorf("parsing model output: %w", err)
	}
	return &doc, nil
}

// extractJSON pulls the outermost JSON object out of the model output,
// which may be fenced in markdown or wrapped in prose.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return content
	}
	return content[start : end+1]
}

func buildSystemPrompt(registry *domain.Registry) string {
	var binary, dimmable, actuator []string
	for _, id := range registry.IDs() {
		kind, _ := registry.KindOf(id)
		switch kind {
		case domain.KindDimmable:
			dimmable = append(dimmable, fmt.Sprintf("%q", id))
		case domain.KindActuator:
			actuator = append(actuator, fmt.Sprintf("%q", id))
		default:
			binary = append(binary, fmt.Sprintf("%q", id))
		}
	}

	return fmt.Sprintf(`You are a friendly assistant that extracts home device control details from user commands and converts them into a strict JSON format.

I have the following devices:
- On/off devices: %s.
- Lights with adjustable intensity (0-100): %s.
- Rotational actuators (0-180 degrees, direction "clock", "anti" or "none"): %s.

Extraction rules:
- Identify devices by their unique identifiers, exactly as listed.
- Only include devices explicitly mentioned in the command.
- Use "on" / "off" state tokens.
- Respond ONLY with valid JSON (no markdown, no backticks) in this shape:
{
  "device_states": {"<device id>": "on"},
  "light_intensity": {"<dimmable light id>": 80},
  "servo_motor_angle": 90,
  "servo_motor_direction": "clock",
  "chatbot_message": "friendly summary of the actions taken",
  "delay_seconds": 0
}
- Omit light_intensity, servo_motor_angle and servo_motor_direction unless the command asks for them.
- delay_seconds is the requested delay before execution; use 0 when none was asked for.`,
		strings.Join(binary, ", "), strings.Join(dimmable, ", "), strings.Join(actuator, ", "))
}

// ensure interface compliance
var _ port.CommandParser = (*GroqParser)(nil)
