package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/testutil"
)

func TestTransactor_RollsBackEveryRepository(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tx := NewTransactor(db)
	tasks := NewTaskRepository(db)
	jobs := NewJobRepository(db)

	testutil.CreateUser(t, db, "user_a", "a@example.com")
	testutil.CreateWorkspace(t, db, "org_1", "user_a")
	project := testutil.CreateProject(t, db, "org_1", "Launch", "user_a")

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		task := &models.Task{ProjectID: project.ID, Title: "draft", Type: models.TaskTypeTask,
			Status: models.TaskStatusTodo, Priority: models.PriorityMedium}
		if err := tasks.Create(ctx, task); err != nil {
			return err
		}
		if _, err := jobs.Insert(ctx, &models.Job{Name: "task.assigned", Payload: "{}", RunAt: time.Now().UTC()}); err != nil {
			return err
		}
		return errors.New("publish failed")
	})
	assert.EqualError(t, err, "publish failed")

	var count int64
	db.Model(&models.Task{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Job{}).Count(&count)
	assert.Zero(t, count)
}

func TestTransactor_Commits(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	jobs := NewJobRepository(db)

	err := NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := jobs.Insert(ctx, &models.Job{Name: "task.assigned", Payload: "{}", RunAt: time.Now().UTC()})
		return err
	})
	require.NoError(t, err)

	var count int64
	db.Model(&models.Job{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
