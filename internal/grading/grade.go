package grading

import (
	"fmt"
	"math"
	"strings"
)

// Grade is a letter grade on the eleven step scale.
type Grade string

const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeD      Grade = "D"
	GradeF      Grade = "F"
)

// Scale lists grades best to worst; the index of a grade is its step.
var Scale = []Grade{GradeAPlus, GradeA, GradeAMinus, GradeBPlus, GradeB, GradeBMinus, GradeCPlus, GradeC, GradeCMinus, GradeD, GradeF}

var lastStep = len(Scale) - 1

// Points returns the point value of g (A+ = 10 ... F = 0).
func Points(g Grade) (int, bool) {
	for i, candidate := range Scale {
		if candidate == g {
			return lastStep - i, true
		}
	}
	return 0, false
}

// ParseGrade converts a stored grade string back into a Grade.
func ParseGrade(value string) (Grade, bool) {
	g := Grade(strings.TrimSpace(value))
	if _, ok := Points(g); !ok {
		return "", false
	}
	return g, true
}

// GradeFromPoints snaps an average point value to the nearest grade. Ties go to
// the lower grade, the first candidate in ascending point order.
func GradeFromPoints(avg float64) Grade {
	best := GradeF
	bestDiff := math.Inf(1)
	for points := 0; points <= lastStep; points++ {
		diff := math.Abs(float64(points) - avg)
		if diff < bestDiff {
			bestDiff = diff
			best = Scale[lastStep-points]
		}
	}
	return best
}

// Policy derives a letter grade from the statuses of one submission.
type Policy interface {
	Name() string
	Grade(statuses []Status) Grade
}

const (
	PolicySimpleName   = "simple"
	PolicyWeightedName = "weighted"
)

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicySimpleName:
		return SimplePolicy{}, nil
	case PolicyWeightedName:
		return WeightedPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown grading policy %q", name)
	}
}

// SimplePolicy counts only fully wrong answers. A correct result reached through
// a wrong process does not move the grade.
type SimplePolicy struct{}

func (SimplePolicy) Name() string { return PolicySimpleName }

func (p SimplePolicy) Grade(statuses []Status) Grade {
	return p.FromCounts(CountStatuses(statuses))
}

// FromCounts grades already bucketed counts.
func (SimplePolicy) FromCounts(counts Counts) Grade {
	switch {
	case counts.Total() == 0:
		return GradeF
	case counts.Wrong == 0:
		return GradeAPlus
	case counts.Wrong >= lastStep:
		return GradeF
	default:
		return Scale[counts.Wrong]
	}
}

// WeightedPolicy treats wrong and result-wrong answers as full errors and lets a
// single partially correct answer through before the grade drops.
type WeightedPolicy struct{}

func (WeightedPolicy) Name() string { return PolicyWeightedName }

func (WeightedPolicy) Grade(statuses []Status) Grade {
	if len(statuses) == 0 {
		return GradeF
	}

	fullErrors, partialErrors := 0, 0
	for _, status := range statuses {
		switch status {
		case StatusWrong, StatusResultWrongProcess:
			fullErrors++
		case StatusPartialProcess:
			partialErrors++
		}
	}

	index := 0
	switch {
	case fullErrors > 0:
		index = min(fullErrors, lastStep)
	case partialErrors > 1:
		index = min(1+(partialErrors-2), lastStep)
	}
	return Scale[index]
}
