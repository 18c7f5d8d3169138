package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const (
	answerRawFile         = "answer_raw.md"
	answerSelectedFile    = "answer_selected.md"
	teacherBookFile       = "teacher_book.pdf"
	classReportLatestFile = "class_report_latest.md"
	combinedReportsFile   = "combined_reports.md"
	classReportTimeLayout = "20060102T150405"
)

// AssignmentDir is the directory holding every artifact of one assignment.
func AssignmentDir(teacherName string, teacherID uint, title string, assignmentID uint) string {
	return path.Join(
		fmt.Sprintf("%s_%d", slugOr(teacherName, "teacher"), teacherID),
		"assignments",
		fmt.Sprintf("%s_%d", slugOr(title, "assignment"), assignmentID),
	)
}

// StudentFiles locates the artifacts of one student's submission.
type StudentFiles struct {
	Homework string
	Report   string
	Data     string
}

// StudentPaths derives the artifact paths of a student inside an assignment directory.
func StudentPaths(assignmentDir, studentNumber, studentName string) StudentFiles {
	prefix := fmt.Sprintf("%s-%s", slugOr(studentNumber, "0"), slugOr(studentName, "student"))
	base := path.Join(assignmentDir, "submissions", prefix)
	return StudentFiles{
		Homework: base + "-homework.pdf",
		Report:   base + "-report.md",
		Data:     base + "-data.json",
	}
}

// StudentPathsFromHomework derives the report and data paths that sit next to
// a stored homework file.
func StudentPathsFromHomework(homework string) StudentFiles {
	base := strings.TrimSuffix(homework, "-homework.pdf")
	if base == homework {
		base = strings.TrimSuffix(homework, path.Ext(homework))
	}
	return StudentFiles{
		Homework: homework,
		Report:   base + "-report.md",
		Data:     base + "-data.json",
	}
}

// AnswerRawPath is where the model-extracted answer key is kept.
func AnswerRawPath(assignmentDir string) string {
	return path.Join(assignmentDir, answerRawFile)
}

// AnswerSelectedPath is where the teacher-confirmed answer key is kept.
func AnswerSelectedPath(assignmentDir string) string {
	return path.Join(assignmentDir, answerSelectedFile)
}

// TeacherBookPath is where the uploaded teacher book PDF is kept.
func TeacherBookPath(assignmentDir string) string {
	return path.Join(assignmentDir, teacherBookFile)
}

// ClassReportPath is the timestamped location of a generated class report.
func ClassReportPath(assignmentDir string, generatedAt time.Time) string {
	name := fmt.Sprintf("class_report_%s.md", generatedAt.UTC().Format(classReportTimeLayout))
	return path.Join(assignmentDir, "reports", name)
}

// CombinedReportsPath holds the student review sections a class report was generated from.
func CombinedReportsPath(assignmentDir string) string {
	return path.Join(assignmentDir, "reports", combinedReportsFile)
}

// ClassReportLatestPath always holds a copy of the newest class report.
func ClassReportLatestPath(assignmentDir string) string {
	return path.Join(assignmentDir, "reports", classReportLatestFile)
}

func slugOr(value, fallback string) string {
	s := slug.Make(strings.TrimSpace(value))
	if s == "" {
		return fallback
	}
	return s
}

func cleanKey(p string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(p))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid artifact path %q", p)
	}
	return cleaned, nil
}
