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

// ProxyStore persists egress proxy endpoints.
type ProxyStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewProxyStore creates a new proxy store.
func NewProxyStore(db *sqlx.DB, logger *logrus.Logger) *ProxyStore {
	return &ProxyStore{db: db, logger: logger}
}

// List returns every proxy, newest first.
func (s *ProxyStore) List() ([]types.Proxy, error) {
	proxies := []types.Proxy{}
	if err := s.db.Select(&proxies, "SELECT * FROM proxies ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("failed to list proxies: %w", err)
	}
	return proxies, nil
}

// GetByID loads one proxy. Returns *types.NotFoundError for unknown ids.
func (s *ProxyStore) GetByID(id int64) (*types.Proxy, error) {
	var p types.Proxy
	err := s.db.Get(&p, "SELECT * FROM proxies WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &types.NotFoundError{Entity: "proxy", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load proxy %d: %w", id, err)
	}
	return &p, nil
}

// GetDefault returns the default proxy, or nil when none is flagged.
func (s *ProxyStore) GetDefault() (*types.Proxy, error) {
	var p types.Proxy
	err := s.db.Get(&p, "SELECT * FROM proxies WHERE is_default = 1 LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load default proxy: %w", err)
	}
	return &p, nil
}

// Create inserts a new proxy.
func (s *ProxyStore) Create(p *types.Proxy) (*types.Proxy, error) {
	isDefault := 0
	if p.IsDefault {
		isDefault = 1
	}
	res, err := s.db.Exec(
		"INSERT INTO proxies (name, type, host, port, username, password, is_default) VALUES (?, ?, ?, ?, ?, ?, ?)",
		p.Name, p.Type, p.Host, p.Port, p.Username, p.Password, isDefault,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy id: %w", err)
	}
	return s.GetByID(id)
}

// ProxyUpdate carries the mutable proxy fields; nil means unchanged.
type ProxyUpdate struct {
	Name      *string
	Type      *string
	Host      *string
	Port      *int
	Username  *string
	Password  *string
	IsDefault *bool
}

// Update applies the non-nil fields of upd to one proxy.
func (s *ProxyStore) Update(id int64, upd ProxyUpdate) (*types.Proxy, error) {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}, set bool) {
		if set {
			sets = append(sets, col+" = ?")
			args = append(args, v)
		}
	}
	add("name", deref(upd.Name), upd.Name != nil)
	add("type", deref(upd.Type), upd.Type != nil)
	add("host", deref(upd.Host), upd.Host != nil)
	if upd.Port != nil {
		add("port", *upd.Port, true)
	}
	add("username", deref(upd.Username), upd.Username != nil)
	add("password", deref(upd.Password), upd.Password != nil)
	if upd.IsDefault != nil {
		v := 0
		if *upd.IsDefault {
			v = 1
		}
		add("is_default", v, true)
	}

	if len(sets) == 0 {
		return s.GetByID(id)
	}
	args = append(args, id)
	query := "UPDATE proxies SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("failed to update proxy %d: %w", id, err)
	}
	return s.GetByID(id)
}

func deref(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// Delete removes one proxy.
func (s *ProxyStore) Delete(id int64) (bool, error) {
	res, err := s.db.Exec("DELETE FROM proxies WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete proxy %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetDefault flags one proxy as the default and clears the flag elsewhere.
func (s *ProxyStore) SetDefault(id int64) (*types.Proxy, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin set-default: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE proxies SET is_default = 0"); err != nil {
		return nil, fmt.Errorf("failed to clear default proxy: %w", err)
	}
	if _, err := tx.Exec("UPDATE proxies SET is_default = 1 WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to set default proxy %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit set-default: %w", err)
	}
	return s.GetByID(id)
}

// UpdateTestResult records the outcome of a connectivity test.
func (s *ProxyStore) UpdateTestResult(id int64, ip, status string) error {
	_, err := s.db.Exec(
		"UPDATE proxies SET last_tested_at = CURRENT_TIMESTAMP, last_test_ip = ?, status = ? WHERE id = ?",
		ip, status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record proxy test for %d: %w", id, err)
	}
	return nil
}
