package rbac

import "time"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission represents an atomic capability stored in the catalogue.
type Permission struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
}
