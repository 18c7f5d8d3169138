package grading

import (
	"encoding/json"
	"fmt"
)

// RawEntry is one question judgment as extracted from a grading report.
type RawEntry struct {
	Section string
	ID      string
	Status  string
}

// QuestionResult is the normalized outcome of a single question.
type QuestionResult struct {
	Key    string `json:"key"`
	Status Status `json:"status"`
}

// Counts buckets question results by canonical status.
type Counts struct {
	Correct     int `json:"correct"`
	Partial     int `json:"partial"`
	ResultWrong int `json:"result_wrong"`
	Wrong       int `json:"wrong"`
}

// Total returns the number of counted questions.
func (c Counts) Total() int {
	return c.Correct + c.Partial + c.ResultWrong + c.Wrong
}

// CountStatuses buckets statuses; anything non-canonical counts as wrong.
func CountStatuses(statuses []Status) Counts {
	var counts Counts
	for _, status := range statuses {
		switch status {
		case StatusCorrect:
			counts.Correct++
		case StatusPartialProcess:
			counts.Partial++
		case StatusResultWrongProcess:
			counts.ResultWrong++
		default:
			counts.Wrong++
		}
	}
	return counts
}

// GradeReport is the structured per-student result persisted after grading.
type GradeReport struct {
	StudentName    string           `json:"student_name"`
	StudentID      string           `json:"student_id"`
	TotalQuestions int              `json:"total_questions"`
	Counts         Counts           `json:"counts"`
	Grade          Grade            `json:"grade"`
	Questions      []QuestionResult `json:"questions"`
}

// Statuses returns the question statuses in report order.
func (r GradeReport) Statuses() []Status {
	statuses := make([]Status, 0, len(r.Questions))
	for _, q := range r.Questions {
		statuses = append(statuses, q.Status)
	}
	return statuses
}

// Validate checks the ledger invariants of a decoded report.
func (r GradeReport) Validate() error {
	if r.Counts.Total() != r.TotalQuestions {
		return fmt.Errorf("counts sum to %d, expected %d", r.Counts.Total(), r.TotalQuestions)
	}
	if len(r.Questions) != r.TotalQuestions {
		return fmt.Errorf("report lists %d questions, expected %d", len(r.Questions), r.TotalQuestions)
	}
	for _, q := range r.Questions {
		if !q.Status.Valid() {
			return fmt.Errorf("question %q has non-canonical status %q", q.Key, q.Status)
		}
	}
	return nil
}

// BuildQuestionResults normalizes raw entries. Entries whose identifier is
// empty after reduction are dropped; a repeated key keeps the position of its
// first occurrence and the status of its last.
func BuildQuestionResults(entries []RawEntry) []QuestionResult {
	results := make([]QuestionResult, 0, len(entries))
	positions := make(map[string]int, len(entries))

	for _, entry := range entries {
		if QuestionID(entry.ID) == "" {
			continue
		}
		key := QuestionKey(entry.Section, entry.ID)
		status := NormalizeStatus(entry.Status)

		if idx, ok := positions[key]; ok {
			results[idx].Status = status
			continue
		}
		positions[key] = len(results)
		results = append(results, QuestionResult{Key: key, Status: status})
	}

	return results
}

// BuildReport assembles the grade report for one student.
func BuildReport(studentName, studentID string, entries []RawEntry, policy Policy) GradeReport {
	questions := BuildQuestionResults(entries)
	report := GradeReport{
		StudentName:    studentName,
		StudentID:      studentID,
		TotalQuestions: len(questions),
		Questions:      questions,
	}
	statuses := report.Statuses()
	report.Counts = CountStatuses(statuses)
	report.Grade = policy.Grade(statuses)
	return report
}

// MarshalReport encodes a report in its persisted form.
func MarshalReport(report GradeReport) ([]byte, error) {
	if report.Questions == nil {
		report.Questions = []QuestionResult{}
	}
	return json.MarshalIndent(report, "", "  ")
}

// UnmarshalReport decodes and validates a persisted report.
func UnmarshalReport(data []byte) (GradeReport, error) {
	var report GradeReport
	if err := json.Unmarshal(data, &report); err != nil {
		return GradeReport{}, fmt.Errorf("decode grade report: %w", err)
	}
	if err := report.Validate(); err != nil {
		return GradeReport{}, fmt.Errorf("invalid grade report: %w", err)
	}
	return report, nil
}
