package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	adjudicationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hweval",
		Subsystem: "adjudicator",
		Name:      "classification_duration_seconds",
		Help:      "Duration of LLM adjudication requests",
	}, []string{"model"})

	adjudicationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hweval",
		Subsystem: "adjudicator",
		Name:      "classification_failures_total",
		Help:      "Number of failed LLM adjudication requests",
	}, []string{"model", "reason"})
)

// resultSchema rejects model replies that stray from the closed taxonomy
// before they can reach the evaluation engine.
var resultSchema = jsonschema.MustCompileString("adjudication.json", `{
	"type": "object",
	"required": ["verdict", "error_type", "recognition_status", "judgment_status"],
	"properties": {
		"verdict": {"enum": ["PASS", "FAIL"]},
		"error_type": {"enum": ["完全正确", "语义等价", "识别正确-判断错误", "识别错误-判断正确", "识别错误-判断错误", "AI幻觉"]},
		"severity": {"enum": ["none", "low", "medium", "high", "critical"]},
		"recognition_status": {"enum": ["一致", "语义等价", "不一致"]},
		"judgment_status": {"enum": ["一致", "不一致"]},
		"reason": {"type": "string"}
	}
}`)

// OpenAIConfig defines configuration options for the OpenAI adjudicator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIAdjudicator implements Adjudicator against the OpenAI chat completion
// API (or any compatible endpoint via BaseURL).
type OpenAIAdjudicator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAdjudicator builds a new adjudicator using the provided configuration.
func NewOpenAIAdjudicator(cfg OpenAIConfig) (*OpenAIAdjudicator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	tracer := otel.Tracer("github.com/penmark/hweval-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIAdjudicator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Classify sends the disputed pair to the model and parses the classification.
func (a *OpenAIAdjudicator) Classify(parent context.Context, input AdjudicationInput) (AdjudicationResult, error) {
	ctx, span := a.tracer.Start(parent, "openai.classify", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
		attribute.String("subject", input.Subject),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: adjudicatorSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildAdjudicationPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := a.client.CreateChatCompletion(ctx, request)
	adjudicationDuration.WithLabelValues(a.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		adjudicationFailures.WithLabelValues(a.cfg.Model, "transport").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AdjudicationResult{}, fmt.Errorf("openai classify: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		adjudicationFailures.WithLabelValues(a.cfg.Model, "empty").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AdjudicationResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := parseAdjudicationResponse(content)
	if err != nil {
		adjudicationFailures.WithLabelValues(a.cfg.Model, "parse").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AdjudicationResult{}, err
	}

	result.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return result, nil
}

func adjudicatorSystemPrompt() string {
	return "你是一个作业批改质量评审专家。对比基准批改与AI批改对同一道题的读取与判断，裁定两者是否语义等价并给错误分类。" +
		"只返回JSON对象，字段：verdict(PASS|FAIL)、error_type(完全正确|语义等价|识别正确-判断错误|识别错误-判断正确|识别错误-判断错误|AI幻觉)、" +
		"severity(none|low|medium|high|critical)、recognition_status(一致|语义等价|不一致)、judgment_status(一致|不一致)、reason(简短说明)。" +
		"数学上等值的表达（如 0.75 与 3/4）视为语义等价。"
}

func buildAdjudicationPrompt(input AdjudicationInput) string {
	builder := strings.Builder{}
	builder.WriteString("# 学科\n")
	builder.WriteString(input.Subject)
	builder.WriteString("\n\n## 题型\n")
	builder.WriteString(input.QuestionType)
	builder.WriteString("\n\n## 标准答案\n")
	builder.WriteString(input.StandardAnswer)
	builder.WriteString("\n\n## 基准读取的学生作答\n")
	builder.WriteString(input.BaseUserAnswer)
	builder.WriteString(fmt.Sprintf("\n基准判断正确: %t", input.BaseCorrect))
	builder.WriteString("\n\n## AI读取的学生作答\n")
	builder.WriteString(input.AIUserAnswer)
	builder.WriteString(fmt.Sprintf("\nAI判断正确: %t", input.AICorrect))
	builder.WriteString("\n\n返回JSON。")
	return builder.String()
}

func parseAdjudicationResponse(content string) (AdjudicationResult, error) {
	var document interface{}
	if err := json.Unmarshal([]byte(content), &document); err != nil {
		return AdjudicationResult{}, fmt.Errorf("parse adjudication json: %w", err)
	}

	if err := resultSchema.Validate(document); err != nil {
		return AdjudicationResult{}, fmt.Errorf("adjudication response out of taxonomy: %w", err)
	}

	var result AdjudicationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return AdjudicationResult{}, fmt.Errorf("decode adjudication json: %w", err)
	}

	return result, nil
}
