package ai

import "context"

// Operation names one logical call to the grading model.
type Operation string

const (
	OperationExtractAnswerKey    Operation = "extract-answer-key"
	OperationGrade               Operation = "grade"
	OperationExtractStructured   Operation = "extract-structured"
	OperationGenerateClassReport Operation = "generate-class-report"
)

// Document is a binary artefact handed to the model, such as a scanned PDF.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// QuestionEntry is one per-question judgment pulled out of a grading report.
type QuestionEntry struct {
	Section string `json:"section"`
	ID      string `json:"id"`
	Status  string `json:"status"`
}

// Oracle performs OCR, grading judgment and structured extraction.
type Oracle interface {
	ExtractAnswerKey(ctx context.Context, teacherBook Document, instructions string) (string, error)
	Grade(ctx context.Context, homework Document, answerKey string) (string, error)
	ExtractStructured(ctx context.Context, report string) ([]QuestionEntry, error)
	GenerateClassReport(ctx context.Context, combined string) (string, error)
}
