// Package operator provides the operator account model and lifecycle state machine.
//
// Lifecycle: unregistered → provisional → active/admin with a visibility
// scope, or provisional → deleted. Approval is the only path to the active
// tier and always grants the admin role; there is no demotion path.
package operator

import (
	"time"
)

type (
	// Role is the operator's capability tier.
	Role string

	// Status is the operator's lifecycle state.
	Status string

	// Operator is a registered account with lifecycle status, role, and
	// visibility scope. CredentialDigest is a one-way bcrypt digest and is
	// never exposed outside the package's storage boundary.
	Operator struct {
		ID               string
		FullName         string
		Email            string
		CredentialDigest string
		Role             Role
		Status           Status
		Scope            string
		Gender           string
		Country          string
		Company          string
		JobTitle         string
		CreatedAt        time.Time
	}

	// Profile is the public view of an Operator: every field except the
	// credential digest. This is what Authenticate and ListPending return.
	Profile struct {
		ID       string `json:"id"`
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Role     Role   `json:"role"`
		Status   Status `json:"status"`
		Scope    string `json:"scope"`
		Country  string `json:"country"`
		Company  string `json:"company"`
		JobTitle string `json:"job_title"`
	}
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"

	StatusProvisional Status = "provisional"
	StatusActive      Status = "active"

	// ScopeAll is the unrestricted visibility scope.
	ScopeAll = "All"
)

// Profile returns the operator's public view.
func (o *Operator) Profile() Profile {
	return Profile{
		ID:       o.ID,
		FullName: o.FullName,
		Email:    o.Email,
		Role:     o.Role,
		Status:   o.Status,
		Scope:    o.Scope,
		Country:  o.Country,
		Company:  o.Company,
		JobTitle: o.JobTitle,
	}
}
