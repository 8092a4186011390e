package teams

import (
	"errors"
	"time"

	"github.com/rankforge/rankforge/pkg/authz"
)

// Sentinel errors for member write operations
var (
	// ErrMemberNotFound indicates the membership row disappeared between the
	// policy check and the write.
	ErrMemberNotFound = errors.New("member not found")
	// ErrLastOwner indicates the write would have removed or demoted a team's
	// only owner. The conditional SQL guard caught a race the policy check
	// could not see.
	ErrLastOwner = errors.New("cannot remove the last owner")
	// ErrAlreadyMember indicates the user already belongs to the team
	ErrAlreadyMember = errors.New("user is already a member")
)

// Team represents a workspace that owns projects, keywords, and site audits
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a membership row joined with display fields for listings
type Member struct {
	authz.Membership
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}
