package storage

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestAferoStoreWriteReadExists(t *testing.T) {
	store := NewAferoStore(afero.NewMemMapFs(), zerolog.Nop())
	ctx := context.Background()

	ok, err := store.Exists(ctx, "a/b/report.md")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Write(ctx, "a/b/report.md", []byte("# report")))

	ok, err = store.Exists(ctx, "/a/b/../b/report.md")
	require.NoError(t, err)
	require.True(t, ok)

	data, err := store.Read(ctx, "a/b/report.md")
	require.NoError(t, err)
	require.Equal(t, "# report", string(data))
}

func TestAferoStoreReadMissing(t *testing.T) {
	store := NewAferoStore(afero.NewMemMapFs(), zerolog.Nop())

	_, err := store.Read(context.Background(), "missing.json")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAferoStoreRejectsEmptyPath(t *testing.T) {
	store := NewAferoStore(afero.NewMemMapFs(), zerolog.Nop())

	require.Error(t, store.Write(context.Background(), "  ", []byte("x")))
}

func TestAferoStoreStaysInsideRoot(t *testing.T) {
	memfs := afero.NewMemMapFs()
	store := NewAferoStore(memfs, zerolog.Nop())

	require.NoError(t, store.Write(context.Background(), "../../etc/passwd", []byte("x")))
	ok, err := afero.Exists(memfs, "etc/passwd")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPathsAreDeterministic(t *testing.T) {
	dir := AssignmentDir("Ms Lee", 3, "Fractions & Decimals", 12)
	require.Equal(t, "ms-lee_3/assignments/fractions-and-decimals_12", dir)
	require.Equal(t, dir, AssignmentDir("Ms Lee", 3, "Fractions & Decimals", 12))

	files := StudentPaths(dir, "07", "Alice Wong")
	require.Equal(t, dir+"/submissions/07-alice-wong-homework.pdf", files.Homework)
	require.Equal(t, dir+"/submissions/07-alice-wong-report.md", files.Report)
	require.Equal(t, dir+"/submissions/07-alice-wong-data.json", files.Data)

	require.Equal(t, dir+"/answer_raw.md", AnswerRawPath(dir))
	require.Equal(t, dir+"/answer_selected.md", AnswerSelectedPath(dir))
	require.Equal(t, dir+"/teacher_book.pdf", TeacherBookPath(dir))

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.Equal(t, dir+"/reports/class_report_20240506T070809.md", ClassReportPath(dir, at))
	require.Equal(t, dir+"/reports/class_report_latest.md", ClassReportLatestPath(dir))
	require.Equal(t, dir+"/reports/combined_reports.md", CombinedReportsPath(dir))
}

func TestPathsFallBackForUnsluggableNames(t *testing.T) {
	dir := AssignmentDir("", 1, "!!!", 2)
	require.Equal(t, "teacher_1/assignments/assignment_2", dir)
}

func TestStudentPathsFromHomework(t *testing.T) {
	files := StudentPathsFromHomework("d/submissions/07-alice-homework.pdf")
	require.Equal(t, "d/submissions/07-alice-report.md", files.Report)
	require.Equal(t, "d/submissions/07-alice-data.json", files.Data)

	files = StudentPathsFromHomework("legacy/scan.pdf")
	require.Equal(t, "legacy/scan-report.md", files.Report)
	require.Equal(t, "legacy/scan-data.json", files.Data)
}
