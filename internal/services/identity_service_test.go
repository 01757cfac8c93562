package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/logging"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/testutil"
)

type IdentityServiceTestSuite struct {
	suite.Suite
	fx      *fixture
	service *IdentityService
	ctx     context.Context
}

func (suite *IdentityServiceTestSuite) SetupTest() {
	suite.fx = newFixture(suite.T())
	suite.service = NewIdentityService(suite.fx.users, suite.fx.workspace, logging.Discard())
	suite.ctx = context.Background()
}

func (suite *IdentityServiceTestSuite) countUsers(where string, args ...interface{}) int64 {
	var n int64
	suite.Require().NoError(suite.fx.db.Model(&models.User{}).Where(where, args...).Count(&n).Error)
	return n
}

func (suite *IdentityServiceTestSuite) TestUserCreatedIsIdempotent() {
	payload := []byte(`{
		"id": "user_new",
		"email_addresses": [{"email_address": "new@example.com"}],
		"first_name": "New",
		"last_name": "Person",
		"image_url": "https://img.example.com/new.png"
	}`)

	suite.Require().NoError(suite.service.UserCreated(suite.ctx, payload))
	suite.Require().NoError(suite.service.UserCreated(suite.ctx, payload))

	suite.Equal(int64(1), suite.countUsers("email = ?", "new@example.com"))
	user, err := suite.fx.users.FindByID(suite.ctx, "user_new")
	suite.Require().NoError(err)
	suite.Equal("New Person", user.Name)
	suite.Equal("https://img.example.com/new.png", user.Image)
}

func (suite *IdentityServiceTestSuite) TestUserCreatedRefreshesPreinvitedUser() {
	payload := []byte(`{"id": "user_other", "email_addresses": [{"email_address": "member@example.com"}], "first_name": "Mem"}`)
	suite.Require().NoError(suite.service.UserCreated(suite.ctx, payload))

	user, err := suite.fx.users.FindByID(suite.ctx, memberID)
	suite.Require().NoError(err)
	suite.Equal("Mem", user.Name)
	suite.Zero(suite.countUsers("id = ?", "user_other"))
}

func (suite *IdentityServiceTestSuite) TestUserUpdatedIsPartial() {
	suite.Require().NoError(suite.service.UserUpdated(suite.ctx, []byte(`{"id": "user_member", "image_url": "pic.png"}`)))

	user, err := suite.fx.users.FindByID(suite.ctx, memberID)
	suite.Require().NoError(err)
	suite.Equal("pic.png", user.Image)
	suite.Equal(memberID, user.Name)
	suite.Equal("member@example.com", user.Email)

	suite.NoError(suite.service.UserUpdated(suite.ctx, []byte(`{"id": "user_unknown", "first_name": "X"}`)))
}

func (suite *IdentityServiceTestSuite) TestUserDeletedCleansUp() {
	task := testutil.CreateTask(suite.T(), suite.fx.db, suite.fx.project.ID, "Owned", testutil.Ptr(memberID))
	testutil.CreateComment(suite.T(), suite.fx.db, task.ID, memberID, "bye", time.Now().UTC())

	suite.Require().NoError(suite.service.UserDeleted(suite.ctx, []byte(`{"id": "user_member"}`)))
	suite.Require().NoError(suite.service.UserDeleted(suite.ctx, []byte(`{"id": "user_member"}`)))

	suite.Zero(suite.countUsers("id = ?", memberID))
	reloaded, err := suite.fx.tasks.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Nil(reloaded.AssigneeID)

	var comments, memberships int64
	suite.Require().NoError(suite.fx.db.Model(&models.Comment{}).Count(&comments).Error)
	suite.Require().NoError(suite.fx.db.Model(&models.WorkspaceMember{}).Where("user_id = ?", memberID).Count(&memberships).Error)
	suite.Zero(comments)
	suite.Zero(memberships)
}

func (suite *IdentityServiceTestSuite) TestOrganizationLifecycle() {
	created := []byte(`{"id": "org_new", "name": "New Org", "slug": "new-org", "created_by": "user_outsider"}`)
	suite.Require().NoError(suite.service.OrganizationCreated(suite.ctx, created))
	suite.Require().NoError(suite.service.OrganizationCreated(suite.ctx, created))

	workspace, err := suite.fx.workspace.FindByID(suite.ctx, "org_new", "Members")
	suite.Require().NoError(err)
	suite.Equal("New Org", workspace.Name)
	suite.Equal(outsiderID, workspace.OwnerID)
	suite.Require().Len(workspace.Members, 1)
	suite.Equal(models.RoleAdmin, workspace.Members[0].Role)

	suite.Require().NoError(suite.service.OrganizationUpdated(suite.ctx, []byte(`{"id": "org_new", "slug": "renamed"}`)))
	workspace, err = suite.fx.workspace.FindByID(suite.ctx, "org_new")
	suite.Require().NoError(err)
	suite.Equal("renamed", workspace.Slug)
	suite.Equal("New Org", workspace.Name)

	suite.Require().NoError(suite.service.OrganizationDeleted(suite.ctx, []byte(`{"id": "org_new"}`)))
	suite.Require().NoError(suite.service.OrganizationDeleted(suite.ctx, []byte(`{"id": "org_new"}`)))
	_, err = suite.fx.workspace.FindByID(suite.ctx, "org_new")
	suite.Error(err)
}

func (suite *IdentityServiceTestSuite) TestOrganizationDeletedCascades() {
	task := testutil.CreateTask(suite.T(), suite.fx.db, suite.fx.project.ID, "t", nil)
	testutil.CreateComment(suite.T(), suite.fx.db, task.ID, memberID, "c", time.Now().UTC())

	suite.Require().NoError(suite.service.OrganizationDeleted(suite.ctx, []byte(`{"id": "org_1"}`)))

	for _, model := range []interface{}{&models.Comment{}, &models.Task{}, &models.ProjectMember{}, &models.Project{}, &models.WorkspaceMember{}, &models.Workspace{}} {
		var n int64
		suite.Require().NoError(suite.fx.db.Model(model).Count(&n).Error)
		suite.Zero(n, "%T", model)
	}
}

func (suite *IdentityServiceTestSuite) TestMembershipCreated() {
	payload := []byte(`{
		"organization": {"id": "org_1"},
		"public_user_data": {"user_id": "user_fresh", "identifier": "fresh@example.com"},
		"role": "org:admin"
	}`)
	suite.Require().NoError(suite.service.MembershipCreated(suite.ctx, payload))
	suite.Require().NoError(suite.service.MembershipCreated(suite.ctx, payload))

	user, err := suite.fx.users.FindByID(suite.ctx, "user_fresh")
	suite.Require().NoError(err)
	suite.Equal("fresh", user.Name)

	member, err := suite.fx.workspace.FindMember(suite.ctx, orgID, "user_fresh")
	suite.Require().NoError(err)
	suite.Equal(models.RoleAdmin, member.Role)
}

func (suite *IdentityServiceTestSuite) TestMembershipCreatedWaitsForWorkspace() {
	payload := []byte(`{"organization": {"id": "org_later"}, "public_user_data": {"user_id": "user_outsider"}, "role": "org:member"}`)
	suite.Error(suite.service.MembershipCreated(suite.ctx, payload))
}

func (suite *IdentityServiceTestSuite) TestMembershipUpdatedAndDeleted() {
	suite.Require().NoError(suite.service.MembershipUpdated(suite.ctx, []byte(`{
		"organization": {"id": "org_1"}, "public_user_data": {"user_id": "user_member"}, "role": "org:admin"
	}`)))
	member, err := suite.fx.workspace.FindMember(suite.ctx, orgID, memberID)
	suite.Require().NoError(err)
	suite.Equal(models.RoleAdmin, member.Role)

	suite.Require().NoError(suite.service.MembershipDeleted(suite.ctx, []byte(`{
		"organization": {"id": "org_1"}, "public_user_data": {"user_id": "user_member"}
	}`)))
	_, err = suite.fx.workspace.FindMember(suite.ctx, orgID, memberID)
	suite.Error(err)

	var projectMemberships int64
	suite.Require().NoError(suite.fx.db.Model(&models.ProjectMember{}).Where("user_id = ?", memberID).Count(&projectMemberships).Error)
	suite.Zero(projectMemberships)
}

func (suite *IdentityServiceTestSuite) TestRegisteredJobsRunThroughDispatcher() {
	dispatcher := events.NewDispatcher(suite.fx.jobs, events.Options{
		PollInterval: time.Second,
		BatchSize:    10,
		MaxAttempts:  3,
		RetryBackoff: time.Minute,
		Now:          time.Now,
	}, logging.Discard())
	suite.service.Register(dispatcher)

	suite.True(suite.service.Supports(IdentityUserCreated))
	suite.False(suite.service.Supports("session.created"))

	suite.Require().NoError(dispatcher.Publish(suite.ctx, events.Event{
		Name:    IdentityJobName(IdentityUserCreated),
		Payload: mustJSONRaw(`{"id": "user_q", "email_addresses": [{"email_address": "q@example.com"}]}`),
	}))
	suite.Require().NoError(dispatcher.Publish(suite.ctx, events.Event{
		Name:    IdentityJobName(IdentityUserUpdated),
		Payload: mustJSONRaw(`"not an object"`),
	}))

	ran, err := dispatcher.RunOnce(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(2, ran)
	suite.Equal(int64(1), suite.countUsers("id = ?", "user_q"))

	var failed models.Job
	suite.Require().NoError(suite.fx.db.Where("name = ?", IdentityJobName(IdentityUserUpdated)).First(&failed).Error)
	suite.Equal(models.JobStatusFailed, failed.Status)
	suite.Equal(1, failed.Attempts)
}

func TestIdentityServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceTestSuite))
}
