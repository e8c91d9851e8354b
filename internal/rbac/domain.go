package rbac

import "time"

// User is an API account. PasswordHash never leaves the service.
type User struct {
	ID           int64     `json:"user_id"`
	UserName     string    `json:"user_name"`
	PasswordHash string    `json:"-"`
	Enabled      bool      `json:"enabled"`
	EmployeeID   *int64    `json:"employee_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Roles        []Role    `json:"roles"`
}

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64        `json:"role_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64     `json:"permission_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserInput is the create payload for a user.
type UserInput struct {
	UserName   string `json:"user_name" validate:"required,max=50"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Enabled    *bool  `json:"enabled"`
	EmployeeID *int64 `json:"employee_id" validate:"omitempty,gt=0"`
}

// UserUpdate lists the user fields a PUT may change. Nil fields are kept.
type UserUpdate struct {
	UserName   *string `json:"user_name" validate:"omitempty,min=1,max=50"`
	Password   *string `json:"password" validate:"omitempty,min=8,max=72"`
	Enabled    *bool   `json:"enabled"`
	EmployeeID *int64  `json:"employee_id" validate:"omitempty,gt=0"`
}

// RoleInput is the create payload for a role.
type RoleInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"required,max=255"`
}

// RoleUpdate lists the role fields a PUT may change.
type RoleUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,min=1,max=255"`
}

// PermissionInput is the create payload for a permission.
type PermissionInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"required,max=255"`
}

// PermissionUpdate lists the permission fields a PUT may change.
type PermissionUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,min=1,max=255"`
}
