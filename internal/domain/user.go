package domain

import (
	"context"
	"fmt"
	"time"
)

// Role is the capability class carried in the token claim.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role name coming from the outside (requests, claims).
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleManager, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q: %w", s, ErrValidation)
}

// User represents a storefront account
type User struct {
	ID              int64
	Email           string // Unique email address
	FullName        string
	Phone           string
	DeliveryAddress string
	PasswordHash    string // Bcrypt hashed password (not returned in API)
	Role            Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Credential is the login handle bound one-to-one to a user. The password
// hash lives on the User; the credential only carries the unique handle.
type Credential struct {
	ID     int64
	Login  string // Unique login handle
	UserID int64
}

// PaymentMethod is a stored card record. It is never charged or validated
// against a payment network.
type PaymentMethod struct {
	ID         int64
	UserID     int64
	CardNumber string
	ExpiryDate string
	CVC        string
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
	// List returns all users, or only those with the given role when
	// role is non-empty.
	List(ctx context.Context, role Role) ([]*User, error)
}

// CredentialRepository defines data access for login handles
type CredentialRepository interface {
	Create(ctx context.Context, cred *Credential) error
	GetByLogin(ctx context.Context, login string) (*Credential, error)
}

// PaymentMethodRepository defines data access for stored cards
type PaymentMethodRepository interface {
	Create(ctx context.Context, pm *PaymentMethod) error
	ListByUser(ctx context.Context, userID int64) ([]*PaymentMethod, error)
	Remove(ctx context.Context, userID, id int64) error
}

// TxManager runs fn inside a single unit of work. Every write that must
// commit atomically with another goes through one WithinTx call.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
