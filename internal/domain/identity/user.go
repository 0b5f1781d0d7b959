package identity

import (
	"strings"
	"time"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusDeactivated UserStatus = "deactivated"
)

// UserRole is the functional role a user plays in fulfillment
type UserRole string

const (
	RoleSales     UserRole = "sales"
	RoleWarehouse UserRole = "warehouse"
	RoleManager   UserRole = "manager"
)

// User represents an operator of the system. Users act as order
// confirmers, warehouse assignees, issuers and approvers; every
// state-changing operation records which user performed it.
type User struct {
	shared.BaseAggregateRoot
	Username    string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	DisplayName string     `gorm:"type:varchar(100)"`
	Email       string     `gorm:"type:varchar(200)"`
	Role        UserRole   `gorm:"type:varchar(20);not null"`
	Status      UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates a new active user
func NewUser(username, displayName string, role UserRole) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Username is required")
	}
	switch role {
	case RoleSales, RoleWarehouse, RoleManager:
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown user role")
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		DisplayName:       displayName,
		Role:              role,
		Status:            UserStatusActive,
	}, nil
}

// IsActive reports whether the user may perform operations
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Deactivate blocks the user from further operations
func (u *User) Deactivate() error {
	if u.Status == UserStatusDeactivated {
		return shared.NewDomainError("INVALID_STATE", "User is already deactivated")
	}
	u.Status = UserStatusDeactivated
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}
