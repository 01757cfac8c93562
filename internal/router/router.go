package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/handlers"
	"github.com/yukikurage/project-management-api/internal/middleware"
)

type Deps struct {
	BasePath     string
	SessionStore sessions.Store
	Verifier     middleware.TokenVerifier
	Log          *logrus.Logger

	HealthHandler    *handlers.HealthHandler
	AuthHandler      *handlers.AuthHandler
	WorkspaceHandler *handlers.WorkspaceHandler
	ProjectHandler   *handlers.ProjectHandler
	TaskHandler      *handlers.TaskHandler
	CommentHandler   *handlers.CommentHandler
	WebhookHandler   *handlers.WebhookHandler
}

func Setup(r *gin.Engine, deps Deps) {
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))

	r.GET("/health", deps.HealthHandler.Health)

	api := r.Group(deps.BasePath)

	// Provider webhooks authenticate by signature, not by session.
	api.POST("/webhooks/identity", deps.WebhookHandler.IdentityEvent)
	api.POST("/auth/logout", deps.AuthHandler.Logout)

	authed := api.Group("")
	authed.Use(middleware.RequireAuth(deps.Verifier))
	{
		authed.POST("/auth/session", deps.AuthHandler.CreateSession)
		authed.GET("/auth/me", deps.AuthHandler.GetCurrentUser)

		workspaces := authed.Group("/workspaces")
		{
			workspaces.GET("", deps.WorkspaceHandler.ListWorkspaces)
			workspaces.POST("/add-member", deps.WorkspaceHandler.AddMember)
		}

		projects := authed.Group("/projects")
		{
			projects.POST("", deps.ProjectHandler.CreateProject)
			projects.PUT("", deps.ProjectHandler.UpdateProject)
			projects.GET("/:projectId", deps.ProjectHandler.GetProject)
			projects.POST("/:projectId/addMember", deps.ProjectHandler.AddMember)
		}

		tasks := authed.Group("/tasks")
		{
			tasks.POST("", deps.TaskHandler.CreateTask)
			tasks.POST("/generate", deps.TaskHandler.GenerateTasks)
			tasks.POST("/delete", deps.TaskHandler.DeleteTasks)
			tasks.PUT("/:id", deps.TaskHandler.UpdateTask)
		}

		comments := authed.Group("/comments")
		{
			comments.POST("", deps.CommentHandler.CreateComment)
			comments.GET("/:taskId", deps.CommentHandler.ListComments)
		}
	}
}
