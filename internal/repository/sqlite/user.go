package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// conflictError translates a SQLite UNIQUE violation into the Conflict
// taxonomy, naming the colliding field. Returns nil if err is not a unique
// violation.
//
// modernc.org/sqlite embeds the constraint name in the error text
// ("UNIQUE constraint failed: users.email"), which is the stable way to tell
// WHICH unique index fired without driver-specific error types.
func conflictError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
		return apperror.Conflict("user", "email")
	case strings.Contains(msg, "UNIQUE constraint failed: users.username"):
		return apperror.Conflict("user", "username")
	case strings.Contains(msg, "UNIQUE constraint failed: oauth_providers.provider_id"):
		return apperror.Conflict("oauth provider", "provider id")
	}
	return nil
}

// Create inserts a new user and their OAuth provider links in one
// transaction. It assigns ID, CreatedAt, and UpdatedAt on the passed record.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, first_name, last_name, username, email, password, profile_photo, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		user.Password,
		user.ProfilePhoto,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if conflict := conflictError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	for _, p := range user.OAuthProviders {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO oauth_providers (provider_id, provider_type, user_id) VALUES (?, ?, ?)`,
			p.ID, string(p.Type), user.ID,
		); err != nil {
			if conflict := conflictError(err); conflict != nil {
				return conflict
			}
			return fmt.Errorf("sqlite: inserting oauth provider %q: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user insert: %w", err)
	}
	return nil
}

// GetByID retrieves a user and their OAuth links by internal ID.
// Returns apperror.ErrNotFound if no such user exists.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getBy(ctx, "id", id)
}

// GetByEmail retrieves a user by email. The email column is COLLATE NOCASE,
// so the comparison is case-insensitive regardless of what the caller sends.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getBy(ctx, "email", email)
}

func (db *DB) getBy(ctx context.Context, column, value string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, username, email, password, profile_photo, created_at, updated_at
		 FROM users WHERE `+column+` = ?`,
		value,
	).Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.Email,
		&u.Password,
		&u.ProfilePhoto,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %q: %w", column, value, err)
	}

	providers, err := db.loadProviders(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.OAuthProviders = providers

	return &u, nil
}

// loadProviders returns the OAuth links for one user. Always non-nil.
func (db *DB) loadProviders(ctx context.Context, userID string) ([]model.OAuthProvider, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT provider_id, provider_type FROM oauth_providers WHERE user_id = ? ORDER BY provider_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading oauth providers for user %s: %w", userID, err)
	}
	defer rows.Close()

	providers := make([]model.OAuthProvider, 0, 2)
	for rows.Next() {
		var p model.OAuthProvider
		var typ string
		if err := rows.Scan(&p.ID, &typ); err != nil {
			return nil, fmt.Errorf("sqlite: scanning oauth provider: %w", err)
		}
		p.Type = model.ProviderType(typ)
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating oauth providers: %w", err)
	}

	return providers, nil
}

// List returns all users ordered by creation time. Zero users yields an
// empty slice, not an error.
func (db *DB) List(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, first_name, last_name, username, email, password, profile_photo, created_at, updated_at
		 FROM users ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	index := make(map[string]int)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email,
			&u.Password, &u.ProfilePhoto, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		u.OAuthProviders = make([]model.OAuthProvider, 0)
		index[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	// One pass over oauth_providers instead of a query per user.
	provRows, err := db.conn.QueryContext(ctx,
		`SELECT provider_id, provider_type, user_id FROM oauth_providers ORDER BY provider_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing oauth providers: %w", err)
	}
	defer provRows.Close()

	for provRows.Next() {
		var p model.OAuthProvider
		var typ, userID string
		if err := provRows.Scan(&p.ID, &typ, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning oauth provider: %w", err)
		}
		p.Type = model.ProviderType(typ)
		if i, ok := index[userID]; ok {
			users[i].OAuthProviders = append(users[i].OAuthProviders, p)
		}
	}
	if err := provRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating oauth providers: %w", err)
	}

	return users, nil
}

// Update persists the user's profile fields and credential, and merges the
// OAuthProviders slice into the oauth_providers table.
//
// INSERT OR IGNORE keyed on provider_id makes the merge idempotent: an entry
// that already exists (for this user or any other) is silently skipped, so a
// provider id can never appear twice no matter how many logins race.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users
		 SET first_name = ?, last_name = ?, username = ?, email = ?, password = ?, profile_photo = ?, updated_at = ?
		 WHERE id = ?`,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		user.Password,
		user.ProfilePhoto,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if conflict := conflictError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading update result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	for _, p := range user.OAuthProviders {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO oauth_providers (provider_id, provider_type, user_id) VALUES (?, ?, ?)`,
			p.ID, string(p.Type), user.ID,
		); err != nil {
			return fmt.Errorf("sqlite: merging oauth provider %q: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user update: %w", err)
	}
	return nil
}

// Delete removes a user. The oauth_providers rows go with it via the
// ON DELETE CASCADE foreign key. Removal is irreversible.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading delete result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}
