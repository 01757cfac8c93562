package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/project-management-api/internal/logging"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/testutil"
)

type ProjectServiceTestSuite struct {
	suite.Suite
	fx      *fixture
	service *ProjectService
}

func (suite *ProjectServiceTestSuite) SetupTest() {
	suite.fx = newFixture(suite.T())
	suite.service = NewProjectService(suite.fx.projects, suite.fx.workspace, suite.fx.users, logging.Discard())
}

func memberIDs(members []models.ProjectMember) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func (suite *ProjectServiceTestSuite) TestCreate() {
	project, err := suite.service.Create(context.Background(), adminID, CreateProjectInput{
		WorkspaceID:   orgID,
		Name:          "  Website  ",
		TeamLeadEmail: "member@example.com",
		TeamMembers:   []string{"ADMIN@example.com", "member@example.com", "outsider@example.com"},
	})
	suite.Require().NoError(err)

	suite.Equal("Website", project.Name)
	suite.Equal(memberID, project.TeamLead)
	suite.Equal(models.ProjectStatusActive, project.Status)
	suite.Equal(models.PriorityMedium, project.Priority)
	suite.Require().NotNil(project.Owner)
	suite.Equal(memberID, project.Owner.ID)
	suite.ElementsMatch([]string{memberID, adminID}, memberIDs(project.Members))
}

func (suite *ProjectServiceTestSuite) TestCreateTeamLeadFallsBackToRequester() {
	for _, email := range []string{"nobody@example.com", "outsider@example.com", ""} {
		suite.Run(email, func() {
			project, err := suite.service.Create(context.Background(), adminID, CreateProjectInput{
				WorkspaceID:   orgID,
				Name:          "Fallback " + email,
				TeamLeadEmail: email,
			})
			suite.Require().NoError(err)
			suite.Equal(adminID, project.TeamLead)
			suite.Equal([]string{adminID}, memberIDs(project.Members))
		})
	}
}

func (suite *ProjectServiceTestSuite) TestCreateErrors() {
	ctx := context.Background()

	_, err := suite.service.Create(ctx, memberID, CreateProjectInput{WorkspaceID: orgID, Name: "Nope"})
	suite.ErrorIs(err, policy.ErrNotWorkspaceAdmin)
	suite.ErrorIs(err, policy.ErrDenied)

	_, err = suite.service.Create(ctx, adminID, CreateProjectInput{WorkspaceID: orgID, Name: " "})
	suite.ErrorIs(err, ErrValidation)

	_, err = suite.service.Create(ctx, adminID, CreateProjectInput{WorkspaceID: orgID, Name: "X", Progress: 101})
	suite.ErrorIs(err, ErrInvalidProgress)

	_, err = suite.service.Create(ctx, adminID, CreateProjectInput{WorkspaceID: "org_missing", Name: "X"})
	suite.ErrorIs(err, ErrWorkspaceNotFound)
}

func (suite *ProjectServiceTestSuite) TestUpdate() {
	ctx := context.Background()
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	suite.Require().NoError(suite.fx.projects.UpdateFields(ctx, suite.fx.project.ID, map[string]interface{}{
		"description": "keep me",
		"end_date":    start.AddDate(0, 1, 0),
	}))

	name := "Relaunch"
	status := models.ProjectStatusOnHold
	updated, err := suite.service.Update(ctx, memberID, UpdateProjectInput{
		WorkspaceID: orgID,
		ProjectID:   suite.fx.project.ID,
		Name:        &name,
		Status:      &status,
		StartDate:   &start,
	})
	suite.Require().NoError(err)

	suite.Equal("Relaunch", updated.Name)
	suite.Equal(models.ProjectStatusOnHold, updated.Status)
	suite.Equal("keep me", updated.Description)
	suite.Require().NotNil(updated.StartDate)
	suite.True(start.Equal(*updated.StartDate))
	suite.Nil(updated.EndDate)
}

func (suite *ProjectServiceTestSuite) TestUpdateByWorkspaceAdmin() {
	progress := 40
	updated, err := suite.service.Update(context.Background(), adminID, UpdateProjectInput{
		WorkspaceID: orgID,
		ProjectID:   suite.fx.project.ID,
		Progress:    &progress,
	})
	suite.Require().NoError(err)
	suite.Equal(40, updated.Progress)
}

func (suite *ProjectServiceTestSuite) TestUpdateErrors() {
	ctx := context.Background()
	testutil.AddWorkspaceMember(suite.T(), suite.fx.db, orgID, outsiderID, models.RoleMember)

	_, err := suite.service.Update(ctx, outsiderID, UpdateProjectInput{WorkspaceID: orgID, ProjectID: suite.fx.project.ID})
	suite.ErrorIs(err, policy.ErrNotProjectEditor)

	testutil.CreateWorkspace(suite.T(), suite.fx.db, "org_2", outsiderID)
	_, err = suite.service.Update(ctx, outsiderID, UpdateProjectInput{WorkspaceID: "org_2", ProjectID: suite.fx.project.ID})
	suite.ErrorIs(err, ErrProjectNotFound)

	bad := models.Priority("URGENT")
	_, err = suite.service.Update(ctx, memberID, UpdateProjectInput{WorkspaceID: orgID, ProjectID: suite.fx.project.ID, Priority: &bad})
	suite.ErrorIs(err, ErrInvalidPriority)
}

func (suite *ProjectServiceTestSuite) TestAddMember() {
	ctx := context.Background()

	member, err := suite.service.AddMember(ctx, memberID, suite.fx.project.ID, "admin@example.com")
	suite.Require().NoError(err)
	suite.Equal(adminID, member.UserID)

	_, err = suite.service.AddMember(ctx, memberID, suite.fx.project.ID, "Admin@example.com")
	suite.ErrorIs(err, ErrAlreadyProjectMember)
	suite.ErrorIs(err, ErrConflict)
}

func (suite *ProjectServiceTestSuite) TestAddMemberErrors() {
	ctx := context.Background()

	_, err := suite.service.AddMember(ctx, adminID, suite.fx.project.ID, "admin@example.com")
	suite.ErrorIs(err, policy.ErrNotTeamLead)

	_, err = suite.service.AddMember(ctx, memberID, suite.fx.project.ID, "outsider@example.com")
	suite.ErrorIs(err, policy.ErrNotWorkspaceMember)

	_, err = suite.service.AddMember(ctx, memberID, suite.fx.project.ID, "nobody@example.com")
	suite.ErrorIs(err, ErrUserNotFound)

	_, err = suite.service.AddMember(ctx, memberID, "missing", "admin@example.com")
	suite.ErrorIs(err, ErrProjectNotFound)
}

func (suite *ProjectServiceTestSuite) TestGet() {
	ctx := context.Background()

	project, err := suite.service.Get(ctx, adminID, suite.fx.project.ID)
	suite.Require().NoError(err)
	suite.Equal("Launch", project.Name)

	_, err = suite.service.Get(ctx, outsiderID, suite.fx.project.ID)
	suite.ErrorIs(err, ErrProjectNotFound)
}

func TestProjectServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectServiceTestSuite))
}
