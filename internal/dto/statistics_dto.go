package dto

import "github.com/noah-isme/gema-grader/internal/grading"

// ClassStatistics summarizes the graded submissions of one assignment.
type ClassStatistics struct {
	TotalStudents     int               `json:"total_students"`
	SubmittedCount    int               `json:"submitted_count"`
	SubmissionRate    float64           `json:"submission_rate"`
	GradeDistribution map[string]int    `json:"grade_distribution"`
	AverageGrade      *grading.Grade    `json:"average_grade"`
	PerQuestionStats  []QuestionStats   `json:"per_question_stats"`
	LowScoreRoster    []LowScoreStudent `json:"low_score_roster"`
}

// QuestionStats tallies one question key across the class.
type QuestionStats struct {
	Key          string `json:"key"`
	CorrectCount int    `json:"correct_count"`
	PartialCount int    `json:"partial_count"`
	WrongCount   int    `json:"wrong_count"`
	TotalCount   int    `json:"total_count"`
}

// LowScoreStudent identifies a student whose grade needs follow-up.
type LowScoreStudent struct {
	StudentID   string        `json:"student_id"`
	StudentName string        `json:"student_name"`
	Grade       grading.Grade `json:"grade"`
}
