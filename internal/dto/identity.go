package dto

import (
	"encoding/json"
	"strings"
)

// IdentityEvent is the envelope the identity provider posts to the webhook.
type IdentityEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// IdentityUser is the user object of user.* events. Pointer fields are nil
// when the provider left them out, so updates only touch what was sent.
type IdentityUser struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	FirstName      *string        `json:"first_name"`
	LastName       *string        `json:"last_name"`
	ImageURL       *string        `json:"image_url"`
}

// PrimaryEmail returns the first listed address, or "" when there is none.
func (u IdentityUser) PrimaryEmail() string {
	if len(u.EmailAddresses) == 0 {
		return ""
	}
	return strings.TrimSpace(u.EmailAddresses[0].EmailAddress)
}

// HasName reports whether the event carried any part of the name.
func (u IdentityUser) HasName() bool {
	return u.FirstName != nil || u.LastName != nil
}

func (u IdentityUser) FullName() string {
	return joinName(u.FirstName, u.LastName)
}

// IdentityOrganization is the object of organization.* events.
type IdentityOrganization struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Slug      *string `json:"slug"`
	ImageURL  *string `json:"image_url"`
	CreatedBy string  `json:"created_by"`
}

type OrganizationRef struct {
	ID string `json:"id"`
}

type PublicUserData struct {
	UserID     string  `json:"user_id"`
	Identifier string  `json:"identifier"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	ImageURL   *string `json:"image_url"`
}

// DisplayName falls back to the local part of the identifier.
func (p PublicUserData) DisplayName() string {
	if name := joinName(p.FirstName, p.LastName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(p.Identifier, "@")
	return local
}

// IdentityMembership is the object of organizationMembership.* events.
type IdentityMembership struct {
	Organization   OrganizationRef `json:"organization"`
	PublicUserData PublicUserData  `json:"public_user_data"`
	Role           string          `json:"role"`
}

// ProviderAdminRole is the provider role that maps to a workspace admin.
const ProviderAdminRole = "org:admin"

func joinName(first, last *string) string {
	var parts []string
	if first != nil && *first != "" {
		parts = append(parts, *first)
	}
	if last != nil && *last != "" {
		parts = append(parts, *last)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
