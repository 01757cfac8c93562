package constants

const (
	// ContextKeyUserID is the gin context and session key holding the principal id.
	ContextKeyUserID = "user_id"
	// ContextKeyActiveOrgID holds the provider's active organization for the request, if any.
	ContextKeyActiveOrgID = "active_org_id"

	SessionCookieName = "pm_session"

	// HeaderWebhookSignature carries the hex HMAC-SHA256 of the raw webhook body.
	HeaderWebhookSignature = "X-Webhook-Signature"
	// HeaderWebhookID carries the provider's delivery id.
	HeaderWebhookID = "X-Webhook-Id"
)

const (
	MaxBulkDeleteTasks  = 200
	MaxAIGeneratedTasks = 20
	MaxCommentLength    = 5000
)
