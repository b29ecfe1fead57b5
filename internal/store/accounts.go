package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// AccountStore persists mailbox accounts. The retrieval coordinator only
// uses GetByID and the three mutators; the rest serves the admin API.
type AccountStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewAccountStore creates a new account store.
func NewAccountStore(db *sqlx.DB, logger *logrus.Logger) *AccountStore {
	return &AccountStore{db: db, logger: logger}
}

// GetByID loads one account. Returns *types.NotFoundError for unknown ids.
func (s *AccountStore) GetByID(id int64) (*types.Account, error) {
	var acc types.Account
	err := s.db.Get(&acc, "SELECT * FROM accounts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &types.NotFoundError{Entity: "account", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", id, err)
	}
	return &acc, nil
}

// List returns one page of accounts, optionally filtered by an email
// substring, newest first.
func (s *AccountStore) List(page, pageSize int, search string) ([]types.Account, int, error) {
	if page < 1 {
		page = 1
	}
	where := ""
	args := []interface{}{}
	if search != "" {
		where = "WHERE email LIKE ?"
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := s.db.Get(&total, "SELECT COUNT(*) FROM accounts "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	accounts := []types.Account{}
	query := "SELECT * FROM accounts " + where + " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)
	if err := s.db.Select(&accounts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, total, nil
}

// GetAll returns every account, newest first.
func (s *AccountStore) GetAll() ([]types.Account, error) {
	accounts := []types.Account{}
	if err := s.db.Select(&accounts, "SELECT * FROM accounts ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return accounts, nil
}

// Create inserts a new account.
func (s *AccountStore) Create(email, password, clientID, refreshToken string) (*types.Account, error) {
	res, err := s.db.Exec(
		"INSERT INTO accounts (email, password, client_id, refresh_token) VALUES (?, ?, ?, ?)",
		email, password, clientID, refreshToken,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read account id: %w", err)
	}
	return s.GetByID(id)
}

// AccountUpdate carries the mutable account fields; nil means unchanged.
type AccountUpdate struct {
	Email        *string
	Password     *string
	ClientID     *string
	RefreshToken *string
	Remark       *string
	Status       *string
}

// Update applies the non-nil fields of upd to one account.
func (s *AccountStore) Update(id int64, upd AccountUpdate) (*types.Account, error) {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("email", upd.Email)
	add("password", upd.Password)
	add("client_id", upd.ClientID)
	add("refresh_token", upd.RefreshToken)
	add("remark", upd.Remark)
	add("status", upd.Status)

	if len(sets) == 0 {
		return s.GetByID(id)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	query := "UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("failed to update account %d: %w", id, err)
	}
	return s.GetByID(id)
}

// Delete removes one account. Cached mail goes with it via FK cascade.
func (s *AccountStore) Delete(id int64) (bool, error) {
	res, err := s.db.Exec("DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// BatchDelete removes a set of accounts and returns how many were deleted.
func (s *AccountStore) BatchDelete(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("DELETE FROM accounts WHERE id IN (?)", ids)
	if err != nil {
		return 0, fmt.Errorf("failed to build batch delete: %w", err)
	}
	res, err := s.db.Exec(s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to batch delete accounts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UpdateSyncTime stamps last_synced_at after a successful retrieval on
// either protocol.
func (s *AccountStore) UpdateSyncTime(id int64) error {
	_, err := s.db.Exec("UPDATE accounts SET last_synced_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to update sync time for account %d: %w", id, err)
	}
	return nil
}

// UpdateTokenRefresh stamps token_refreshed_at and, when the provider
// rotated the refresh token, replaces the stored token in the same
// statement. An empty newRefreshToken leaves the stored token untouched.
func (s *AccountStore) UpdateTokenRefresh(id int64, newRefreshToken string) error {
	var err error
	if newRefreshToken != "" {
		_, err = s.db.Exec(
			`UPDATE accounts SET token_refreshed_at = CURRENT_TIMESTAMP, refresh_token = ?,
			 status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			newRefreshToken, types.StatusActive, id,
		)
	} else {
		_, err = s.db.Exec(
			`UPDATE accounts SET token_refreshed_at = CURRENT_TIMESTAMP,
			 status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			types.StatusActive, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to record token refresh for account %d: %w", id, err)
	}
	return nil
}

// MarkError flags an account whose retrieval exhausted both protocols.
func (s *AccountStore) MarkError(id int64) error {
	_, err := s.db.Exec(
		"UPDATE accounts SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		types.StatusError, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark account %d as error: %w", id, err)
	}
	return nil
}
