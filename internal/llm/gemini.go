package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashutoshrp06/taskloop/internal/config"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = config.DefaultGeminiModel

	roleUser     = "user"
	roleModel    = "model"
	roleFunction = "function"
)

// contentGenerator is the part of *genai.Models the provider uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider talks to the Gemini API through the genai SDK.
type GeminiProvider struct {
	models          contentGenerator
	model           string
	temperature     float32
	topP            float32
	maxOutputTokens int32
	logger          *zap.Logger
}

// NewGeminiProvider creates a Gemini client from cfg.
func NewGeminiProvider(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiProvider(client.Models, cfg, logger), nil
}

func newGeminiProvider(models contentGenerator, cfg config.LLMConfig, logger *zap.Logger) *GeminiProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		models:          models,
		model:           model,
		temperature:     cfg.Temperature,
		topP:            cfg.TopP,
		maxOutputTokens: int32(cfg.MaxOutputTokens),
		logger:          logger,
	}
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

// Complete sends one generateContent request.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	contents := geminiContents(req.Messages)

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		TopP:            genai.Ptr(p.topP),
		MaxOutputTokens: p.maxOutputTokens,
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if len(req.Declarations) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: geminiDeclarations(req.Declarations)}}
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		}
	}

	p.logger.Debug("Sending gemini request",
		zap.String("model", p.model),
		zap.Int("contents", len(contents)),
		zap.Int("tools", len(req.Declarations)),
	)

	resp, err := p.models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, err
	}
	return geminiCompletion(resp)
}

// geminiContents maps the transcript onto user/model/function contents.
func geminiContents(history []types.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		switch msg.Kind {
		case types.KindUserText:
			contents = append(contents, &genai.Content{
				Role:  roleUser,
				Parts: []*genai.Part{{Text: msg.Text}},
			})
		case types.KindModelText:
			var parts []*genai.Part
			if msg.Text != "" {
				parts = append(parts, &genai.Part{Text: msg.Text})
			}
			if msg.Call != nil {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   msg.Call.ID,
					Name: msg.Call.Name,
					Args: msg.Call.Args,
				}})
			}
			if len(parts) == 0 {
				parts = append(parts, &genai.Part{Text: ""})
			}
			contents = append(contents, &genai.Content{Role: roleModel, Parts: parts})
		case types.KindFunctionResult:
			resp := &genai.FunctionResponse{
				Name:     msg.ToolName,
				Response: responsePayload(msg),
			}
			if msg.Call != nil {
				resp.ID = msg.Call.ID
			}
			contents = append(contents, &genai.Content{
				Role:  roleFunction,
				Parts: []*genai.Part{{FunctionResponse: resp}},
			})
		}
	}
	return contents
}

func geminiDeclarations(decls []types.ToolDeclaration) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, decl := range decls {
		fd := &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
		}
		if decl.Parameters.Type != "" {
			fd.Parameters = geminiSchema(&decl.Parameters)
		}
		out = append(out, fd)
	}
	return out
}

func geminiSchema(s *types.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(string(s.Type))),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       geminiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = geminiSchema(prop)
		}
	}
	return out
}

// geminiCompletion reads text and function calls from the first candidate.
func geminiCompletion(resp *genai.GenerateContentResponse) (*Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyCompletion
	}

	var (
		text  strings.Builder
		calls []types.FunctionCall
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, types.FunctionCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: args,
			})
			continue
		}
		text.WriteString(part.Text)
	}

	return &Completion{Text: text.String(), Calls: calls}, nil
}
