package domain

import "time"

type Tenant struct {
	ID          string
	Name        string
	Slug        string
	OwnerUserID string
	Status      string
	// GenericInviteToken backs the tenant's shareable join link. Nil when no
	// link has been minted or the link was revoked.
	GenericInviteToken *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
