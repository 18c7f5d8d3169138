package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/grading"
	"github.com/noah-isme/gema-grader/internal/models"
)

func TestAggregateSubmissionRate(t *testing.T) {
	reports := []grading.GradeReport{
		reportFor("alice", "01", grading.StatusCorrect),
		reportFor("bob", "02", grading.StatusWrong),
	}

	stats := Aggregate(reports, 5)
	require.Equal(t, 5, stats.TotalStudents)
	require.Equal(t, 2, stats.SubmittedCount)
	require.Equal(t, 40.0, stats.SubmissionRate)
}

func TestAggregateZeroRoster(t *testing.T) {
	stats := Aggregate([]grading.GradeReport{reportFor("alice", "01", grading.StatusCorrect)}, 0)
	require.Zero(t, stats.SubmissionRate)
	require.Equal(t, 1, stats.SubmittedCount)
}

func TestAggregateRoundsRate(t *testing.T) {
	reports := []grading.GradeReport{reportFor("alice", "01", grading.StatusCorrect)}
	stats := Aggregate(reports, 3)
	require.Equal(t, 33.33, stats.SubmissionRate)
}

func TestAggregateGradesAndLowScoreRoster(t *testing.T) {
	reports := []grading.GradeReport{
		{StudentName: "alice", StudentID: "01", Grade: grading.GradeAPlus},
		{StudentName: "bob", StudentID: "02", Grade: grading.GradeC},
		{StudentName: "carol", StudentID: "03", Grade: grading.GradeF},
		{StudentName: "dan", StudentID: "04", Grade: grading.GradeCPlus},
	}

	stats := Aggregate(reports, 4)
	require.Equal(t, map[string]int{"A+": 1, "C": 1, "F": 1, "C+": 1}, stats.GradeDistribution)
	require.NotNil(t, stats.AverageGrade)
	// (10 + 3 + 0 + 4) / 4 = 4.25
	require.Equal(t, grading.GradeCPlus, *stats.AverageGrade)
	require.Equal(t, []dto.LowScoreStudent{
		{StudentID: "02", StudentName: "bob", Grade: grading.GradeC},
		{StudentID: "03", StudentName: "carol", Grade: grading.GradeF},
	}, stats.LowScoreRoster)
}

func TestAggregateWithoutRecognisedGrades(t *testing.T) {
	stats := Aggregate([]grading.GradeReport{{StudentName: "x", Grade: "Z"}}, 1)
	require.Nil(t, stats.AverageGrade)
	require.Equal(t, 1, stats.GradeDistribution["Z"])
	require.Empty(t, stats.LowScoreRoster)
}

func TestAggregatePerQuestionFoldsResultWrongIntoWrong(t *testing.T) {
	reports := []grading.GradeReport{
		reportFor("alice", "01", grading.StatusCorrect, grading.StatusResultWrongProcess),
		reportFor("bob", "02", grading.StatusPartialProcess, grading.StatusWrong),
	}

	stats := Aggregate(reports, 2)
	require.Equal(t, []dto.QuestionStats{
		{Key: "§1 1", CorrectCount: 1, PartialCount: 1, WrongCount: 0, TotalCount: 2},
		{Key: "§1 2", CorrectCount: 0, PartialCount: 0, WrongCount: 2, TotalCount: 2},
	}, stats.PerQuestionStats)
}

func TestAggregateEmptyInput(t *testing.T) {
	stats := Aggregate(nil, 0)
	require.Zero(t, stats.SubmittedCount)
	require.NotNil(t, stats.GradeDistribution)
	require.NotNil(t, stats.PerQuestionStats)
	require.NotNil(t, stats.LowScoreRoster)
	require.Nil(t, stats.AverageGrade)
}

func TestAggregateDoesNotMutateReports(t *testing.T) {
	reports := []grading.GradeReport{reportFor("alice", "01", grading.StatusCorrect, grading.StatusWrong)}
	before := reportFor("alice", "01", grading.StatusCorrect, grading.StatusWrong)

	Aggregate(reports, 1)
	require.Equal(t, before, reports[0])
}

func TestStatisticsServiceForAssignment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.addStudent(t, "alice", "01")
	bob := e.addStudent(t, "bob", "02")
	carol := e.addStudent(t, "carol", "03")
	e.addStudent(t, "dan", "04")
	e.addStudent(t, "erin", "05")

	e.addGraded(t, alice, reportFor("alice", "01", grading.StatusCorrect, grading.StatusCorrect), "# r")
	e.addGraded(t, bob, reportFor("bob", "02", grading.StatusCorrect, grading.StatusWrong), "# r")

	missing := models.Submission{
		AssignmentID: e.assignment.ID,
		StudentID:    carol.ID,
		HomeworkPath: "x.pdf",
		DataPath:     "gone/data.json",
		Status:       models.SubmissionStatusGraded,
	}
	require.NoError(t, e.submissions.Create(ctx, &missing))
	pending := models.Submission{AssignmentID: e.assignment.ID, StudentID: carol.ID, HomeworkPath: "y.pdf", Status: models.SubmissionStatusPending}
	require.NoError(t, e.submissions.Create(ctx, &pending))

	svc := NewStatisticsService(e.assignments, e.users, e.loader, testLogger())
	stats, err := svc.ForAssignment(ctx, e.assignment.ID, e.teacherActor())
	require.NoError(t, err)
	require.Equal(t, 5, stats.TotalStudents)
	require.Equal(t, 2, stats.SubmittedCount)
	require.Equal(t, 40.0, stats.SubmissionRate)
	require.Equal(t, 1, stats.GradeDistribution["A+"])
	require.Len(t, stats.PerQuestionStats, 2)
}

func TestStatisticsServiceRejectsOtherTeacher(t *testing.T) {
	e := newEnv(t)
	svc := NewStatisticsService(e.assignments, e.users, e.loader, testLogger())

	_, err := svc.ForAssignment(context.Background(), e.assignment.ID, Actor{ID: e.teacher.ID + 50, Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ForAssignment(context.Background(), 9999, e.teacherActor())
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestStatisticsServiceRecomputesOnEveryCall(t *testing.T) {
	e := newEnv(t)
	alice := e.addStudent(t, "alice", "01")
	e.addGraded(t, alice, reportFor("alice", "01", grading.StatusCorrect), "# r")

	svc := NewStatisticsService(e.assignments, e.users, e.loader, testLogger())
	first, err := svc.ForAssignment(context.Background(), e.assignment.ID, e.teacherActor())
	require.NoError(t, err)
	require.Equal(t, 1, first.SubmittedCount)

	bob := e.addStudent(t, "bob", "02")
	e.addGraded(t, bob, reportFor("bob", "02", grading.StatusWrong), "# r")

	second, err := svc.ForAssignment(context.Background(), e.assignment.ID, e.teacherActor())
	require.NoError(t, err)
	require.Equal(t, 2, second.SubmittedCount)
	require.Equal(t, 2, second.TotalStudents)
	require.Equal(t, 1, second.GradeDistribution["A"])

	_, err = svc.ForAssignment(context.Background(), e.assignment.ID, Actor{ID: alice.ID, Role: models.RoleStudent})
	require.ErrorIs(t, err, ErrForbidden)
}
