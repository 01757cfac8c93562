package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/testutil"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestTaskRepository_DeleteWithCommentsOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "comments" WHERE task_id IN`).
		WithArgs("t1", "t2").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM "tasks" WHERE id IN`).
		WithArgs("t1", "t2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	deleted, err := repo.DeleteWithComments(context.Background(), []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_DeleteWithCommentsRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "comments"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.DeleteWithComments(context.Background(), []string{"t1"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_FindByIDs(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTaskRepository(db)

	testutil.CreateUser(t, db, "lead", "lead@example.com")
	testutil.CreateWorkspace(t, db, "org_1", "lead")
	project := testutil.CreateProject(t, db, "org_1", "P", "lead")
	a := testutil.CreateTask(t, db, project.ID, "a", nil)
	b := testutil.CreateTask(t, db, project.ID, "b", nil)

	tasks, err := repo.FindByIDs(context.Background(), []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskRepository_UpdateFieldsClearsAssignee(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	testutil.CreateUser(t, db, "lead", "lead@example.com")
	testutil.CreateWorkspace(t, db, "org_1", "lead")
	project := testutil.CreateProject(t, db, "org_1", "P", "lead")
	task := testutil.CreateTask(t, db, project.ID, "a", testutil.Ptr("lead"))

	due := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateFields(ctx, task.ID, map[string]interface{}{
		"assignee_id": nil,
		"status":      models.TaskStatusDone,
		"due_date":    due,
	}))

	reloaded, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.AssigneeID)
	assert.Equal(t, models.TaskStatusDone, reloaded.Status)
	require.NotNil(t, reloaded.DueDate)
	assert.True(t, due.Equal(*reloaded.DueDate))
}
