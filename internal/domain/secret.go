package domain

import "time"

// Secret is the hashed shared token gating one community type.
type Secret struct {
	CommunityType CommunityType
	SecretHash    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SecretStatus struct {
	CommunityType CommunityType
	Label         string
	Configured    bool
	UpdatedAt     *time.Time
}
