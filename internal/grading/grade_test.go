package grading

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func repeat(status Status, n int) []Status {
	statuses := make([]Status, n)
	for i := range statuses {
		statuses[i] = status
	}
	return statuses
}

func TestSimplePolicy(t *testing.T) {
	policy := SimplePolicy{}

	require.Equal(t, GradeF, policy.FromCounts(Counts{}))
	require.Equal(t, GradeAPlus, policy.FromCounts(Counts{Correct: 4}))
	require.Equal(t, GradeAPlus, policy.FromCounts(Counts{Correct: 2, Partial: 3, ResultWrong: 2}))
	require.Equal(t, GradeA, policy.FromCounts(Counts{Correct: 3, Wrong: 1}))
	require.Equal(t, GradeD, policy.FromCounts(Counts{Wrong: 9}))
	require.Equal(t, GradeF, policy.FromCounts(Counts{Wrong: 10}))
	require.Equal(t, GradeF, policy.FromCounts(Counts{Wrong: 25, Correct: 1}))
}

func TestWeightedPolicy(t *testing.T) {
	policy := WeightedPolicy{}

	require.Equal(t, GradeF, policy.Grade(nil))
	require.Equal(t, GradeAPlus, policy.Grade(repeat(StatusCorrect, 5)))
	require.Equal(t, GradeAPlus, policy.Grade(append(repeat(StatusCorrect, 5), StatusPartialProcess)))
	require.Equal(t, GradeA, policy.Grade(repeat(StatusPartialProcess, 2)))
	require.Equal(t, GradeAMinus, policy.Grade(repeat(StatusPartialProcess, 3)))
	require.Equal(t, GradeF, policy.Grade(repeat(StatusPartialProcess, 20)))
	require.Equal(t, GradeA, policy.Grade([]Status{StatusCorrect, StatusResultWrongProcess, StatusPartialProcess, StatusPartialProcess}))
	require.Equal(t, GradeD, policy.Grade(repeat(StatusWrong, 9)))
	require.Equal(t, GradeF, policy.Grade(repeat(StatusResultWrongProcess, 12)))
}

func TestPoliciesAgreeOnSingleWrongAnswer(t *testing.T) {
	statuses := []Status{StatusCorrect, StatusPartialProcess, StatusWrong}

	counts := CountStatuses(statuses)
	require.Equal(t, Counts{Correct: 1, Partial: 1, ResultWrong: 0, Wrong: 1}, counts)
	require.Equal(t, GradeA, WeightedPolicy{}.Grade(statuses))
	require.Equal(t, GradeA, SimplePolicy{}.FromCounts(counts))
}

func TestPoliciesDivergeOnResultWrongProcess(t *testing.T) {
	statuses := []Status{StatusCorrect, StatusPartialProcess, StatusResultWrongProcess, StatusWrong}

	counts := CountStatuses(statuses)
	require.Equal(t, Counts{Correct: 1, Partial: 1, ResultWrong: 1, Wrong: 1}, counts)

	simple := SimplePolicy{}.FromCounts(counts)
	weighted := WeightedPolicy{}.Grade(statuses)
	require.Equal(t, GradeA, simple)
	require.Equal(t, GradeAMinus, weighted)
	require.NotEqual(t, simple, weighted)
}

func TestPolicyByName(t *testing.T) {
	policy, err := PolicyByName("")
	require.NoError(t, err)
	require.Equal(t, PolicySimpleName, policy.Name())

	policy, err = PolicyByName(" Weighted ")
	require.NoError(t, err)
	require.Equal(t, PolicyWeightedName, policy.Name())

	_, err = PolicyByName("curve")
	require.Error(t, err)
}

func TestGradePoints(t *testing.T) {
	points, ok := Points(GradeAPlus)
	require.True(t, ok)
	require.Equal(t, 10, points)

	points, ok = Points(GradeF)
	require.True(t, ok)
	require.Equal(t, 0, points)

	_, ok = Points("E")
	require.False(t, ok)

	grade, ok := ParseGrade(" B- ")
	require.True(t, ok)
	require.Equal(t, GradeBMinus, grade)
}

func TestGradeFromPoints(t *testing.T) {
	require.Equal(t, GradeAPlus, GradeFromPoints(10))
	require.Equal(t, GradeF, GradeFromPoints(0))
	require.Equal(t, GradeB, GradeFromPoints(6.2))
	require.Equal(t, GradeA, GradeFromPoints(9.5))
	require.Equal(t, GradeF, GradeFromPoints(0.5))
	require.Equal(t, GradeD, GradeFromPoints(0.51))
}
