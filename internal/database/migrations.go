package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

type index struct {
	model interface{}
	name  string
}

// indexes declared on the models that the listing and dispatcher queries rely on.
var indexes = []index{
	{&models.WorkspaceMember{}, "idx_workspace_member_user"},
	{&models.ProjectMember{}, "idx_project_member_user"},
	{&models.Job{}, "idx_jobs_status_run_at"},
	{&models.Comment{}, "CreatedAt"},
	{&models.Task{}, "DueDate"},
}

// AddIndexes creates any of the required indexes that are missing. It is
// driver-agnostic; the gorm migrator knows how each dialect lists indexes.
func AddIndexes(db *gorm.DB, log *logrus.Logger) error {
	m := db.Migrator()
	for _, idx := range indexes {
		if m.HasIndex(idx.model, idx.name) {
			continue
		}
		if err := m.CreateIndex(idx.model, idx.name); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		log.WithField("index", idx.name).Info("created index")
	}
	return nil
}
