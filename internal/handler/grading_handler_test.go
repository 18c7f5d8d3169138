package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/grading"
	"github.com/noah-isme/gema-grader/internal/handler"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/retry"
	"github.com/noah-isme/gema-grader/internal/router"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/internal/storage"
	"github.com/noah-isme/gema-grader/internal/utils"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n"

type stubOracle struct {
	answerKey    string
	answerKeyErr error
}

func (s *stubOracle) ExtractAnswerKey(ctx context.Context, teacherBook ai.Document, instructions string) (string, error) {
	return s.answerKey, s.answerKeyErr
}

func (s *stubOracle) Grade(ctx context.Context, homework ai.Document, answerKey string) (string, error) {
	return "", errors.New("not used")
}

func (s *stubOracle) ExtractStructured(ctx context.Context, report string) ([]ai.QuestionEntry, error) {
	return nil, errors.New("not used")
}

func (s *stubOracle) GenerateClassReport(ctx context.Context, combined string) (string, error) {
	return "# Class analysis", nil
}

type countingQueue struct {
	ids []uint
}

func (q *countingQueue) Enqueue(id uint) {
	q.ids = append(q.ids, id)
}

type testApp struct {
	app        *fiber.App
	db         *gorm.DB
	files      storage.FileStore
	queue      *countingQueue
	teacher    models.User
	student    models.User
	assignment models.Assignment
}

func setupApp(t *testing.T, oracle *stubOracle) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	files := storage.NewAferoStore(afero.NewMemMapFs(), logger)
	invoker := retry.NewInvoker(logger, retry.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))
	queue := &countingQueue{}

	assignments := repository.NewAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	users := repository.NewUserRepository(db)
	reports := repository.NewClassReportRepository(db)
	loader := service.NewReportLoader(submissions, files, logger)

	submissionService := service.NewSubmissionService(service.SubmissionServiceConfig{
		Submissions: submissions,
		Assignments: assignments,
		Users:       users,
		Files:       files,
		Queue:       queue,
		Validator:   validate,
	}, logger)
	assignmentService := service.NewAssignmentService(assignments, submissions, files, oracle, invoker, validate, 0, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "gema-grader-test"}, router.Dependencies{
		SubmissionHandler:  handler.NewSubmissionHandler(submissionService, logger),
		AssignmentHandler:  handler.NewAssignmentHandler(assignmentService, logger),
		StatisticsHandler:  handler.NewStatisticsHandler(service.NewStatisticsService(assignments, users, loader, logger), service.NewExportService(assignments, loader, logger), logger),
		ClassReportHandler: handler.NewClassReportHandler(service.NewClassReportService(assignments, reports, loader, files, oracle, invoker, logger), logger),
		RosterHandler:      handler.NewRosterHandler(service.NewRosterService(users, validate, true, "roster-secret", logger), logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if id, err := strconv.ParseUint(c.Get("X-Test-User"), 10, 64); err == nil {
				c.Locals("user_id", uint(id))
			}
			c.Locals("user_role", c.Get("X-Test-Role"))
			return c.Next()
		},
		QueueDepth: func() int { return len(queue.ids) },
	})

	teacher := models.User{Username: "Ms Lee", Role: models.RoleTeacher}
	require.NoError(t, db.Create(&teacher).Error)
	student := models.User{Username: "alice", Role: models.RoleStudent, ClassID: "7A", StudentNumber: "01"}
	require.NoError(t, db.Create(&student).Error)
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

	return &testApp{app: app, db: db, files: files, queue: queue, teacher: teacher, student: student, assignment: assignment}
}

func (a *testApp) do(t *testing.T, req *http.Request, user models.User) *http.Response {
	t.Helper()
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(user.ID), 10))
	req.Header.Set("X-Test-Role", user.Role)
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) utils.APIResponse {
	t.Helper()
	var payload utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func uploadRequest(t *testing.T, target string, fields map[string]string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", "upload.pdf")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealthIsPublic(t *testing.T) {
	a := setupApp(t, &stubOracle{})

	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "gema-grader-test", resp.Header.Get("X-Application"))
}

func TestSubmitHomeworkQueuesGrading(t *testing.T) {
	a := setupApp(t, &stubOracle{})

	req := uploadRequest(t, "/api/v1/submissions", map[string]string{"assignment_id": strconv.FormatUint(uint64(a.assignment.ID), 10)}, []byte(samplePDF))
	resp := a.do(t, req, a.student)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	payload := decode(t, resp)
	require.True(t, payload.Success)
	data := payload.Data.(map[string]interface{})
	require.Equal(t, models.SubmissionStatusPending, data["status"])
	require.Len(t, a.queue.ids, 1)

	again := uploadRequest(t, "/api/v1/submissions", map[string]string{"assignment_id": strconv.FormatUint(uint64(a.assignment.ID), 10)}, []byte(samplePDF))
	resp = a.do(t, again, a.student)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	id := uint(data["id"].(float64))
	resp = a.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/submissions/%d", id), nil), a.student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = a.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/submissions", nil), a.student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	listed := decode(t, resp)
	require.Len(t, listed.Data, 1)
}

func TestSubmitRejectsNonPDF(t *testing.T) {
	a := setupApp(t, &stubOracle{})

	req := uploadRequest(t, "/api/v1/submissions", map[string]string{"assignment_id": strconv.FormatUint(uint64(a.assignment.ID), 10)}, []byte("hello"))
	resp := a.do(t, req, a.student)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Empty(t, a.queue.ids)
}

func TestTeacherRoutesRejectStudents(t *testing.T) {
	a := setupApp(t, &stubOracle{})

	resp := a.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d/stats", a.assignment.ID), nil), a.student)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = a.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/assignments/abc/stats", nil), a.teacher)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/assignments/999/stats", nil), a.teacher)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func seedGraded(t *testing.T, a *testApp) models.Submission {
	t.Helper()
	ctx := context.Background()
	dir := storage.AssignmentDir(a.teacher.Username, a.teacher.ID, a.assignment.Title, a.assignment.ID)
	paths := storage.StudentPaths(dir, a.student.StudentNumber, a.student.Username)

	report := grading.BuildReport("alice", "01", []grading.RawEntry{
		{Section: "1", ID: "1", Status: "correct"},
		{Section: "1", ID: "2", Status: "wrong"},
	}, grading.WeightedPolicy{})
	data, err := grading.MarshalReport(report)
	require.NoError(t, err)
	require.NoError(t, a.files.Write(ctx, paths.Data, data))
	require.NoError(t, a.files.Write(ctx, paths.Report, []byte("# Report\n\n## Part 2: Review\n\n1. correct")))

	submission := models.Submission{
		AssignmentID: a.assignment.ID,
		StudentID:    a.student.ID,
		HomeworkPath: paths.Homework,
		ReportPath:   paths.Report,
		DataPath:     paths.Data,
		Status:       models.SubmissionStatusGraded,
		Grade:        string(report.Grade),
	}
	require.NoError(t, a.db.Create(&submission).Error)
	return submission
}

func TestStatisticsAndExport(t *testing.T) {
	a := setupApp(t, &stubOracle{})
	seedGraded(t, a)

	resp := a.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d/stats", a.assignment.ID), nil), a.teacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stats := decode(t, resp).Data.(map[string]interface{})
	require.EqualValues(t, 1, stats["total_students"])
	require.EqualValues(t, 100, stats["submission_rate"])

	resp = a.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d/export?form=long", a.assignment.ID), nil), a.teacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "student_name,student_id,key,status,grade\nalice,01,§1 1,correct,A\nalice,01,§1 2,wrong,A\n", string(body))

	resp = a.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d/export?form=pivot", a.assignment.ID), nil), a.teacher)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestReportVisibleAfterPublish(t *testing.T) {
	a := setupApp(t, &stubOracle{})
	submission := seedGraded(t, a)
	target := fmt.Sprintf("/api/v1/submissions/%d/report", submission.ID)

	resp := a.do(t, httptest.NewRequest(http.MethodGet, target, nil), a.student)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = a.do(t, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/assignments/%d/publish", a.assignment.ID), nil), a.teacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = a.do(t, httptest.NewRequest(http.MethodGet, target, nil), a.student)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "## Part 2: Review")
}

func TestAnswerKeyLifecycle(t *testing.T) {
	a := setupApp(t, &stubOracle{answerKey: "1. 3/4"})
	base := fmt.Sprintf("/api/v1/assignments/%d/answer-key", a.assignment.ID)

	resp := a.do(t, uploadRequest(t, base, map[string]string{"instructions": "page 3"}, []byte(samplePDF)), a.teacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	extracted := decode(t, resp).Data.(map[string]interface{})
	require.Equal(t, false, extracted["finalized"])

	req := httptest.NewRequest(http.MethodPut, base, strings.NewReader(`{"content":"1. 0.75"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = a.do(t, req, a.teacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = a.do(t, httptest.NewRequest(http.MethodGet, base, nil), a.teacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	current := decode(t, resp).Data.(map[string]interface{})
	require.Equal(t, "1. 0.75", current["content"])
	require.Equal(t, true, current["finalized"])

	req = httptest.NewRequest(http.MethodPut, base, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp = a.do(t, req, a.teacher)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAnswerKeyOracleUnavailable(t *testing.T) {
	a := setupApp(t, &stubOracle{answerKeyErr: ai.NewError(ai.OperationExtractAnswerKey, ai.KindTransient, errors.New("503"))})
	base := fmt.Sprintf("/api/v1/assignments/%d/answer-key", a.assignment.ID)

	resp := a.do(t, uploadRequest(t, base, map[string]string{"instructions": "page 3"}, []byte(samplePDF)), a.teacher)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestClassReportEndpoints(t *testing.T) {
	a := setupApp(t, &stubOracle{})
	base := fmt.Sprintf("/api/v1/assignments/%d/class-reports", a.assignment.ID)

	resp := a.do(t, httptest.NewRequest(http.MethodPost, base, nil), a.teacher)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp = a.do(t, httptest.NewRequest(http.MethodGet, base+"/latest", nil), a.teacher)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	seedGraded(t, a)
	resp = a.do(t, httptest.NewRequest(http.MethodPost, base, nil), a.teacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = a.do(t, httptest.NewRequest(http.MethodGet, base+"/latest", nil), a.teacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	latest := decode(t, resp).Data.(map[string]interface{})
	require.Equal(t, "# Class analysis", latest["content"])

	resp = a.do(t, httptest.NewRequest(http.MethodGet, base, nil), a.teacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	listed := decode(t, resp)
	require.Len(t, listed.Data, 1)
	require.EqualValues(t, 1, listed.Meta.(map[string]interface{})["total"])
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAssignmentManagement(t *testing.T) {
	a := setupApp(t, &stubOracle{})

	resp := a.do(t, jsonRequest(http.MethodPost, "/api/v1/assignments", `{"title":"Ratios","class_id":"7A"}`), a.teacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := decode(t, resp).Data.(map[string]interface{})
	require.Equal(t, "draft", created["status"])
	id := uint(created["id"].(float64))

	resp = a.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/assignments", nil), a.teacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	listed := decode(t, resp)
	require.Len(t, listed.Data.([]interface{}), 2)
	require.Equal(t, float64(2), listed.Meta.(map[string]interface{})["total"])

	target := fmt.Sprintf("/api/v1/assignments/%d", id)
	resp = a.do(t, jsonRequest(http.MethodPut, target, `{"status":"published"}`), a.teacher)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp = a.do(t, jsonRequest(http.MethodPut, target, `{"deadline":"tomorrow"}`), a.teacher)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp = a.do(t, jsonRequest(http.MethodPost, "/api/v1/assignments", `{"title":"Ratios","class_id":"7A"}`), a.student)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRosterImport(t *testing.T) {
	a := setupApp(t, &stubOracle{})
	body := `{"users":[{"username":"bob","role":"student","class_id":"7A","student_number":"02"}]}`

	resp, err := a.app.Test(jsonRequest(http.MethodPost, "/api/v1/roster", body), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := jsonRequest(http.MethodPost, "/api/v1/roster", body)
	req.Header.Set(handler.HeaderRosterToken, "roster-secret")
	resp, err = a.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var bob models.User
	require.NoError(t, a.db.Where("username = ?", "bob").First(&bob).Error)
	require.Equal(t, "02", bob.StudentNumber)

	req = jsonRequest(http.MethodPost, "/api/v1/roster", `{"users":[]}`)
	req.Header.Set(handler.HeaderRosterToken, "roster-secret")
	resp, err = a.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}
