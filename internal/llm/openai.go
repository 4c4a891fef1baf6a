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

	"github.com/ashutoshrp06/taskloop/internal/config"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"go.uber.org/zap"
)

const (
	DefaultOpenAIEndpoint = "https://api.openai.com/v1"
	DefaultOpenAIModel    = config.DefaultOpenAIModel
)

// OpenAIProvider speaks the /chat/completions protocol shared by OpenAI, vLLM
// and Ollama's OpenAI-compatible endpoint.
type OpenAIProvider struct {
	endpoint        string
	model           string
	apiKey          string
	temperature     float32
	topP            float32
	maxOutputTokens int
	client          *http.Client
	logger          *zap.Logger
}

func NewOpenAIProvider(cfg config.LLMConfig, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultOpenAIEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIProvider{
		endpoint:        endpoint,
		model:           model,
		apiKey:          cfg.APIKey,
		temperature:     cfg.Temperature,
		topP:            cfg.TopP,
		maxOutputTokens: cfg.MaxOutputTokens,
		client:          &http.Client{Timeout: timeout},
		logger:          logger,
	}
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Parameters  *types.Schema `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model             string        `json:"model"`
	Messages          []chatMessage `json:"messages"`
	Temperature       float32       `json:"temperature"`
	TopP              float32       `json:"top_p,omitempty"`
	MaxTokens         int           `json:"max_tokens,omitempty"`
	Tools             []chatTool    `json:"tools,omitempty"`
	ToolChoice        string        `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool         `json:"parallel_tool_calls,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []toolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	body := chatRequest{
		Model:       p.model,
		Messages:    openAIMessages(req.System, req.Messages),
		Temperature: p.temperature,
		TopP:        p.topP,
		MaxTokens:   p.maxOutputTokens,
	}
	if len(req.Declarations) > 0 {
		parallel := false
		body.Tools = openAITools(req.Declarations)
		body.ToolChoice = "auto"
		body.ParallelToolCalls = &parallel
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.authorize(httpReq)

	p.logger.Debug("Sending chat completion request",
		zap.String("model", p.model),
		zap.Int("messages", len(body.Messages)),
		zap.Int("tools", len(body.Tools)),
	)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("LLM returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	msg := chatResp.Choices[0].Message
	completion := &Completion{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("decode arguments for %s: %w", tc.Function.Name, err)
			}
		}
		completion.Calls = append(completion.Calls, types.FunctionCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return completion, nil
}

// Ping lists the models to check the endpoint is reachable.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/models", nil)
	if err != nil {
		return err
	}
	p.authorize(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LLM endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *OpenAIProvider) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

// openAIMessages maps the transcript onto system/user/assistant/tool messages.
func openAIMessages(system string, history []types.Message) []chatMessage {
	msgs := make([]chatMessage, 0, len(history)+1)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}

	var pendingID string
	for i, msg := range history {
		switch msg.Kind {
		case types.KindUserText:
			msgs = append(msgs, chatMessage{Role: "user", Content: msg.Text})
		case types.KindModelText:
			cm := chatMessage{Role: "assistant", Content: msg.Text}
			if msg.Call != nil {
				pendingID = callID(msg.Call.ID, i)
				tc := toolCall{ID: pendingID, Type: "function"}
				tc.Function.Name = msg.Call.Name
				args := msg.Call.Args
				if args == nil {
					args = map[string]any{}
				}
				tc.Function.Arguments = encodeJSON(args)
				cm.ToolCalls = []toolCall{tc}
			}
			msgs = append(msgs, cm)
		case types.KindFunctionResult:
			msgs = append(msgs, chatMessage{
				Role:       "tool",
				Content:    encodeJSON(responsePayload(msg)),
				ToolCallID: pendingID,
				Name:       msg.ToolName,
			})
		}
	}
	return msgs
}

func openAITools(decls []types.ToolDeclaration) []chatTool {
	out := make([]chatTool, 0, len(decls))
	for _, decl := range decls {
		fn := chatFunction{Name: decl.Name, Description: decl.Description}
		if decl.Parameters.Type != "" {
			params := decl.Parameters
			fn.Parameters = &params
		}
		out = append(out, chatTool{Type: "function", Function: fn})
	}
	return out
}

// callID keeps assistant tool_calls and tool messages paired when the call
// came from a provider that does not assign IDs.
func callID(id string, index int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("call_%d", index)
}

func encodeJSON(v any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
