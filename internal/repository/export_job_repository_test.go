package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func newExportJobRepoMock(t *testing.T) (*ExportJobRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewExportJobRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestExportJobRepositoryCreateDefaults(t *testing.T) {
	repo, mock, cleanup := newExportJobRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_export_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{Params: models.ExportJobParams{Format: models.ExportFormatPDF, SchoolID: "school-1"}}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryGetByIDScansParams(t *testing.T) {
	repo, mock, cleanup := newExportJobRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "params", "status", "progress", "result_url", "created_at", "finished_at", "error_message"}).
		AddRow("job-1", []byte(`{"format":"csv","classIds":["class-a"]}`), "FINISHED", 100, "/api/v1/export/tok", time.Now(), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_export_jobs WHERE id = $1")).
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatCSV, job.Params.Format)
	assert.Equal(t, []string{"class-a"}, job.Params.ClassIDs)
	require.NotNil(t, job.ResultURL)
	assert.Nil(t, job.ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryUpdateBuildsSetClause(t *testing.T) {
	repo, mock, cleanup := newExportJobRepoMock(t)
	defer cleanup()

	status := models.ExportStatusProcessing
	progress := 10
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_export_jobs SET status = $1, progress = $2 WHERE id = $3")).
		WithArgs(status, progress, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateExportJobParams{Status: &status, Progress: &progress}))
	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateExportJobParams{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListFinishedBeforeSkipsExpired(t *testing.T) {
	repo, mock, cleanup := newExportJobRepoMock(t)
	defer cleanup()

	cutoff := time.Now().Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1")).
		WithArgs(cutoff, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "params", "status", "progress", "result_url", "created_at", "finished_at", "error_message"}))

	jobs, err := repo.ListFinishedBefore(context.Background(), cutoff, 100)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
