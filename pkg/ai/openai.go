package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	oracleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "oracle",
		Name:      "request_duration_seconds",
		Help:      "Duration of grading model requests",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"operation", "model"})

	oracleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "oracle",
		Name:      "request_failures_total",
		Help:      "Number of failed grading model requests by classification",
	}, []string{"operation", "kind"})
)

const maxDocumentBytes = 20 * 1024 * 1024

// OpenAIConfig defines configuration options for the OpenAI oracle.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// Model serves the heavy operations: answer keys, grading and class reports.
	Model string
	// ExtractModel serves structured extraction.
	ExtractModel string
	Logger       zerolog.Logger
}

// OpenAIOracle implements Oracle against the OpenAI chat completion API.
type OpenAIOracle struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIOracle builds a new oracle using the provided configuration.
func NewOpenAIOracle(cfg OpenAIConfig) (*OpenAIOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}

	if cfg.ExtractModel == "" {
		cfg.ExtractModel = "gpt-4o-mini"
	}

	tracer := otel.Tracer("github.com/noah-isme/gema-grader/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIOracle{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "openai_oracle").Logger(),
	}, nil
}

// ExtractAnswerKey transcribes the selected exercises and answers from a teacher book.
func (o *OpenAIOracle) ExtractAnswerKey(ctx context.Context, teacherBook Document, instructions string) (string, error) {
	op := OperationExtractAnswerKey
	if err := checkDocument(teacherBook); err != nil {
		return "", NewError(op, KindPrecondition, err)
	}

	parts := []openai.ChatMessagePart{
		documentPart(teacherBook),
		{Type: openai.ChatMessagePartTypeText, Text: strings.TrimSpace(instructions)},
	}

	return o.complete(ctx, op, o.cfg.Model, 32000, answerKeySystemPrompt, parts)
}

// Grade produces the markdown grading report for one homework scan.
func (o *OpenAIOracle) Grade(ctx context.Context, homework Document, answerKey string) (string, error) {
	op := OperationGrade
	if err := checkDocument(homework); err != nil {
		return "", NewError(op, KindPrecondition, err)
	}
	if strings.TrimSpace(answerKey) == "" {
		return "", NewError(op, KindPrecondition, errors.New("answer key is empty"))
	}

	parts := []openai.ChatMessagePart{
		documentPart(homework),
		{Type: openai.ChatMessagePartTypeText, Text: "# Answer key\n\n" + answerKey},
	}

	return o.complete(ctx, op, o.cfg.Model, 16000, gradeSystemPrompt, parts)
}

// ExtractStructured pulls per-question judgments out of a grading report.
// An unreadable response is reported with KindParse.
func (o *OpenAIOracle) ExtractStructured(ctx context.Context, report string) ([]QuestionEntry, error) {
	op := OperationExtractStructured
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: report},
	}

	text, err := o.complete(ctx, op, o.cfg.ExtractModel, 8192, extractSystemPrompt, parts)
	if err != nil && !errors.Is(err, ErrEmptyResponse) {
		return nil, err
	}

	entries, parseErr := ParseQuestions(text)
	if parseErr != nil {
		oracleFailures.WithLabelValues(string(op), string(KindParse)).Inc()
		return nil, NewError(op, KindParse, parseErr)
	}
	return entries, nil
}

// GenerateClassReport writes the class-wide analysis from the combined student reports.
func (o *OpenAIOracle) GenerateClassReport(ctx context.Context, combined string) (string, error) {
	op := OperationGenerateClassReport
	if strings.TrimSpace(combined) == "" {
		return "", NewError(op, KindPrecondition, errors.New("combined report is empty"))
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: combined},
	}

	return o.complete(ctx, op, o.cfg.Model, 32000, classReportSystemPrompt, parts)
}

func (o *OpenAIOracle) complete(parent context.Context, op Operation, model string, maxTokens int, system string, parts []openai.ChatMessagePart) (string, error) {
	ctx, span := o.tracer.Start(parent, "openai."+string(op), trace.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", string(op)),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, request)
	oracleDuration.WithLabelValues(string(op), model).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := classifyTransport(err)
		oracleFailures.WithLabelValues(string(op), string(kind)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn().Err(err).Str("operation", string(op)).Str("kind", string(kind)).Msg("model request failed")
		return "", NewError(op, kind, err)
	}

	if len(resp.Choices) == 0 {
		oracleFailures.WithLabelValues(string(op), string(KindFatal)).Inc()
		span.SetStatus(codes.Error, "no choices")
		return "", NewError(op, KindFatal, ErrEmptyResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		oracleFailures.WithLabelValues(string(op), string(KindFatal)).Inc()
		span.SetStatus(codes.Error, "empty content")
		return "", NewError(op, KindFatal, ErrEmptyResponse)
	}

	span.SetAttributes(attribute.Int("usage.total_tokens", resp.Usage.TotalTokens))
	return content, nil
}

func checkDocument(doc Document) error {
	if len(doc.Data) == 0 {
		return fmt.Errorf("document %q is empty", doc.Name)
	}
	if len(doc.Data) > maxDocumentBytes {
		return fmt.Errorf("document %q is %.1f MB, above the 20 MB limit", doc.Name, float64(len(doc.Data))/1024/1024)
	}
	return nil
}

// documentPart inlines doc as a base64 data URL. go-openai has no file content
// part, and the OpenAI endpoint itself accepts only image types here, so PDFs
// need an openai.base_url gateway that takes PDF data URLs.
// TODO: rasterise PDF pages to PNG parts so the stock OpenAI endpoint can read scans.
func documentPart(doc Document) openai.ChatMessagePart {
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	url := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(doc.Data))
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    url,
			Detail: openai.ImageURLDetailHigh,
		},
	}
}
