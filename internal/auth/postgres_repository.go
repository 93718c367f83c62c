package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, name, phone, birth_date, avatar_url, is_active, oauth_provider, oauth_provider_id, created_at, updated_at, last_login_at`

// FindUserByOAuth looks up a member by their OAuth provider and provider ID.
func (r *PostgresRepository) FindUserByOAuth(ctx context.Context, provider, providerID string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE oauth_provider = $1 AND oauth_provider_id = $2
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, provider, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// FindUserByEmail looks up a member by their email address.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// CreateUser inserts a new member.
func (r *PostgresRepository) CreateUser(ctx context.Context, user User) (User, error) {
	const query = `
		INSERT INTO users (id, email, name, phone, birth_date, avatar_url, is_active, oauth_provider, oauth_provider_id, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Phone,
		user.BirthDate,
		user.AvatarURL,
		user.Active,
		user.OAuthProvider,
		user.OAuthProviderID,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return User{}, err
	}

	return user, nil
}

// UpdateUserLogin updates the member's last login time and refreshes the
// profile fields Kakao provides.
func (r *PostgresRepository) UpdateUserLogin(ctx context.Context, id uuid.UUID, name, avatarURL string) error {
	const query = `
		UPDATE users
		SET name = $2, avatar_url = $3, last_login_at = $4, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, name, avatarURL, time.Now())
	return err
}

// CreateSession inserts a new session keyed by the token hash.
func (r *PostgresRepository) CreateSession(ctx context.Context, session Session, tokenHash string) error {
	const query = `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		tokenHash,
		session.ExpiresAt,
		session.CreatedAt,
		session.UserAgent,
		session.IPAddress,
	)
	return err
}

// FindSessionByTokenHash returns the session and its member for a token hash.
func (r *PostgresRepository) FindSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, *User, error) {
	const query = `
		SELECT
			s.id AS session_id, s.user_id, s.expires_at, s.created_at AS session_created_at, s.user_agent, s.ip_address,
			u.id, u.email, u.name, u.phone, u.birth_date, u.avatar_url, u.is_active, u.oauth_provider, u.oauth_provider_id, u.created_at, u.updated_at, u.last_login_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
	`

	var row sessionUserRow
	if err := r.db.GetContext(ctx, &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	return row.toSession(), row.userRow.toUser(), nil
}

// DeleteSession removes a session by ID.
func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpiredSessions removes all expired sessions and reports how many.
func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type userRow struct {
	ID              uuid.UUID    `db:"id"`
	Email           string       `db:"email"`
	Name            string       `db:"name"`
	Phone           string       `db:"phone"`
	BirthDate       sql.NullTime `db:"birth_date"`
	AvatarURL       string       `db:"avatar_url"`
	Active          bool         `db:"is_active"`
	OAuthProvider   string       `db:"oauth_provider"`
	OAuthProviderID string       `db:"oauth_provider_id"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
	LastLoginAt     time.Time    `db:"last_login_at"`
}

func (r userRow) toUser() *User {
	user := &User{
		ID:              r.ID,
		Email:           r.Email,
		Name:            r.Name,
		Phone:           r.Phone,
		AvatarURL:       r.AvatarURL,
		Active:          r.Active,
		OAuthProvider:   r.OAuthProvider,
		OAuthProviderID: r.OAuthProviderID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		LastLoginAt:     r.LastLoginAt,
	}
	if r.BirthDate.Valid {
		birthDate := r.BirthDate.Time
		user.BirthDate = &birthDate
	}
	return user
}

type sessionUserRow struct {
	SessionID        uuid.UUID `db:"session_id"`
	UserID           uuid.UUID `db:"user_id"`
	ExpiresAt        time.Time `db:"expires_at"`
	SessionCreatedAt time.Time `db:"session_created_at"`
	UserAgent        string    `db:"user_agent"`
	IPAddress        string    `db:"ip_address"`
	userRow
}

func (r sessionUserRow) toSession() *Session {
	return &Session{
		ID:        r.SessionID,
		UserID:    r.UserID,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.SessionCreatedAt,
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
	}
}
