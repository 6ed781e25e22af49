package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserRepository{db: db, logger: logger}
}

const userColumns = `id, email, full_name, phone, delivery_address, password_hash, role, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.Phone,
		&user.DeliveryAddress,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new user and fills in its generated id and timestamps
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, full_name, phone, delivery_address, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, query,
		user.Email,
		user.FullName,
		user.Phone,
		user.DeliveryAddress,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(executorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(executorFrom(ctx, r.db).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// Update saves profile fields, role and password hash
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, full_name = $2, phone = $3, delivery_address = $4,
		    password_hash = $5, role = $6, updated_at = now()
		WHERE id = $7
		RETURNING updated_at
	`

	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, query,
		user.Email,
		user.FullName,
		user.Phone,
		user.DeliveryAddress,
		user.PasswordHash,
		user.Role,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", user.ID, domain.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Delete removes a user. Callers must check for non-terminal orders first.
func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns users, optionally restricted to one role
func (r *PostgresUserRepository) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// PostgresCredentialRepository implements domain.CredentialRepository
type PostgresCredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCredentialRepository creates a new credential repository
func NewPostgresCredentialRepository(db *sql.DB, logger *slog.Logger) *PostgresCredentialRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCredentialRepository{db: db, logger: logger}
}

// Create inserts a login handle for a user
func (r *PostgresCredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	query := `INSERT INTO credentials (login, user_id) VALUES ($1, $2) RETURNING id`

	err := executorFrom(ctx, r.db).QueryRowContext(ctx, query, cred.Login, cred.UserID).Scan(&cred.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("login already taken: %w", domain.ErrConflict)
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// GetByLogin retrieves a credential by its unique login handle
func (r *PostgresCredentialRepository) GetByLogin(ctx context.Context, login string) (*domain.Credential, error) {
	query := `SELECT id, login, user_id FROM credentials WHERE login = $1`

	cred := &domain.Credential{}
	err := executorFrom(ctx, r.db).QueryRowContext(ctx, query, login).Scan(&cred.ID, &cred.Login, &cred.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential %s: %w", login, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return cred, nil
}

// PostgresPaymentMethodRepository implements domain.PaymentMethodRepository
type PostgresPaymentMethodRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPaymentMethodRepository creates a new payment method repository
func NewPostgresPaymentMethodRepository(db *sql.DB, logger *slog.Logger) *PostgresPaymentMethodRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPaymentMethodRepository{db: db, logger: logger}
}

// Create stores a card record for a user
func (r *PostgresPaymentMethodRepository) Create(ctx context.Context, pm *domain.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (user_id, card_number, expiry_date, cvc)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, query, pm.UserID, pm.CardNumber, pm.ExpiryDate, pm.CVC,
	).Scan(&pm.ID)
	if err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return nil
}

// ListByUser returns all cards stored by a user
func (r *PostgresPaymentMethodRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.PaymentMethod, error) {
	query := `
		SELECT id, user_id, card_number, expiry_date, cvc
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []*domain.PaymentMethod
	for rows.Next() {
		pm := &domain.PaymentMethod{}
		if err := rows.Scan(&pm.ID, &pm.UserID, &pm.CardNumber, &pm.ExpiryDate, &pm.CVC); err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, pm)
	}
	return methods, rows.Err()
}

// Remove deletes a card owned by the user
func (r *PostgresPaymentMethodRepository) Remove(ctx context.Context, userID, id int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx, `DELETE FROM payment_methods WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("payment method %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
