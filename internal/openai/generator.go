package openai

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/docrag/internal/domain"
)

const (
	// DefaultChatModel answers questions over the assembled context
	DefaultChatModel = openai.GPT4oMini
	// ExtractiveAnswerRunes caps the answer returned when no model is available
	ExtractiveAnswerRunes = 800

	defaultMaxTokens   = 500
	defaultTemperature = 0.2
)

var noInformation = map[domain.Language]string{
	domain.LanguageArabic:  "لم يتم العثور على معلومات ذات صلة.",
	domain.LanguageEnglish: "No relevant information found.",
}

// ChatAPI is the subset of the OpenAI client used for answer generation
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Generator answers a question from an assembled context. Without an API key it falls back
// to an extractive answer built from the context itself.
type Generator struct {
	api         ChatAPI
	model       string
	maxTokens   int
	temperature float32
}

// NewGenerator creates a Generator. An empty APIKey yields an extractive-only generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	g := &Generator{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if g.model == "" {
		g.model = DefaultChatModel
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	if g.temperature <= 0 {
		g.temperature = defaultTemperature
	}
	if cfg.APIKey != "" {
		g.api = newAPIClient(cfg.APIKey, cfg.BaseURL)
	}
	return g
}

// Generate produces the answer text. An ungrounded request never reaches the model.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if !req.Grounded || req.Context.Empty() {
		return NoInformationMessage(req.Language), nil
	}
	if g.api == nil {
		return ExtractiveAnswer(req.Context, req.Language), nil
	}

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req.Language)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Printf("answer generation failed, using extractive answer: %v", err)
		return ExtractiveAnswer(req.Context, req.Language), nil
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return ExtractiveAnswer(req.Context, req.Language), nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// NoInformationMessage returns the localized answer for an empty context
func NoInformationMessage(lang domain.Language) string {
	if lang == domain.LanguageArabic {
		return noInformation[domain.LanguageArabic]
	}
	return noInformation[domain.LanguageEnglish]
}

// ExtractiveAnswer returns the first ExtractiveAnswerRunes runes of the context
func ExtractiveAnswer(qc domain.QueryContext, lang domain.Language) string {
	rs := []rune(qc.Text)
	if len(rs) == 0 {
		return NoInformationMessage(lang)
	}
	if len(rs) > ExtractiveAnswerRunes {
		rs = rs[:ExtractiveAnswerRunes]
	}
	return string(rs)
}

func systemPrompt(lang domain.Language) string {
	if lang == domain.LanguageArabic {
		return "أنت مساعد مفيد يجيب على الأسئلة بناءً على السياق المقدم فقط. إذا لم يكن السياق يحتوي على معلومات كافية، قل ذلك. أجب باللغة العربية."
	}
	return "You are a helpful assistant that answers questions using only the provided context. " +
		"If the context does not contain enough information, say so. Answer in the language of the question."
}

func userPrompt(req domain.GenerationRequest) string {
	label, question := "Context", "Question"
	if req.Language == domain.LanguageArabic {
		label, question = "السياق", "السؤال"
	}

	var sb strings.Builder
	for i, c := range req.Context.Chunks {
		fmt.Fprintf(&sb, "%s %d:\n%s\n\n", label, i+1, c.Text)
	}
	fmt.Fprintf(&sb, "%s: %s", question, req.Question)
	return sb.String()
}
