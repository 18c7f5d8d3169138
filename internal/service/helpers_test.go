package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/grading"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/retry"
	"github.com/noah-isme/gema-grader/internal/storage"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n"

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestInvoker() *retry.Invoker {
	return retry.NewInvoker(testLogger(),
		retry.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
		retry.WithJitter(func() float64 { return 0 }),
	)
}

func newTestFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(int64(len(content))+1024))
	files := req.MultipartForm.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

type env struct {
	db          *gorm.DB
	files       storage.FileStore
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	reports     repository.ClassReportRepository
	loader      *ReportLoader
	validate    *validator.Validate
	teacher     models.User
	assignment  models.Assignment
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	files := storage.NewAferoStore(afero.NewMemMapFs(), testLogger())
	submissions := repository.NewSubmissionRepository(db)

	teacher := models.User{Username: "Ms Lee", Role: models.RoleTeacher}
	require.NoError(t, db.Create(&teacher).Error)
	assignment := models.Assignment{
		Title:           "Fractions",
		TeacherID:       teacher.ID,
		ClassID:         "7A",
		Status:          models.AssignmentStatusPublished,
		AnswerContent:   "1. 3/4",
		AnswerFinalized: true,
	}
	require.NoError(t, db.Create(&assignment).Error)
	assignment.Teacher = teacher

	return &env{
		db:          db,
		files:       files,
		assignments: repository.NewAssignmentRepository(db),
		submissions: submissions,
		users:       repository.NewUserRepository(db),
		reports:     repository.NewClassReportRepository(db),
		loader:      NewReportLoader(submissions, files, testLogger()),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		teacher:     teacher,
		assignment:  assignment,
	}
}

func (e *env) teacherActor() Actor {
	return Actor{ID: e.teacher.ID, Role: models.RoleTeacher}
}

func (e *env) addStudent(t *testing.T, name, number string) models.User {
	t.Helper()
	student := models.User{Username: name, Role: models.RoleStudent, ClassID: e.assignment.ClassID, StudentNumber: number}
	require.NoError(t, e.db.Create(&student).Error)
	return student
}

// addGraded stores a graded submission with its structured and markdown reports.
func (e *env) addGraded(t *testing.T, student models.User, report grading.GradeReport, text string) models.Submission {
	t.Helper()
	ctx := context.Background()
	paths := storage.StudentPaths(assignmentDir(e.assignment), student.StudentNumber, student.Username)

	payload, err := grading.MarshalReport(report)
	require.NoError(t, err)
	require.NoError(t, e.files.Write(ctx, paths.Data, payload))
	require.NoError(t, e.files.Write(ctx, paths.Report, []byte(text)))

	submission := models.Submission{
		AssignmentID: e.assignment.ID,
		StudentID:    student.ID,
		HomeworkPath: paths.Homework,
		ReportPath:   paths.Report,
		DataPath:     paths.Data,
		Status:       models.SubmissionStatusGraded,
		Grade:        string(report.Grade),
	}
	require.NoError(t, e.submissions.Create(ctx, &submission))
	return submission
}

func reportFor(name, id string, statuses ...grading.Status) grading.GradeReport {
	entries := make([]grading.RawEntry, 0, len(statuses))
	for i, status := range statuses {
		entries = append(entries, grading.RawEntry{Section: "§1", ID: fmt.Sprintf("%d", i+1), Status: string(status)})
	}
	return grading.BuildReport(name, id, entries, grading.WeightedPolicy{})
}

type fakeOracle struct {
	mu                sync.Mutex
	answerKey         string
	answerKeyErr      error
	classReport       string
	classReportErr    error
	answerKeyCalls    int
	classReportInputs []string
}

func (f *fakeOracle) ExtractAnswerKey(ctx context.Context, teacherBook ai.Document, instructions string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answerKeyCalls++
	if f.answerKeyErr != nil {
		return "", f.answerKeyErr
	}
	return f.answerKey, nil
}

func (f *fakeOracle) Grade(ctx context.Context, homework ai.Document, answerKey string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeOracle) ExtractStructured(ctx context.Context, report string) ([]ai.QuestionEntry, error) {
	return nil, errors.New("not used")
}

func (f *fakeOracle) GenerateClassReport(ctx context.Context, combined string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classReportInputs = append(f.classReportInputs, combined)
	if f.classReportErr != nil {
		return "", f.classReportErr
	}
	return f.classReport, nil
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []uint
}

func (q *recordingQueue) Enqueue(id uint) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
}
