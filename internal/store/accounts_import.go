package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// DefaultImportSeparator splits fields of one imported account line.
const DefaultImportSeparator = "----"

// DefaultImportFormat is the field order of one imported line.
var DefaultImportFormat = []string{"email", "password", "client_id", "refresh_token"}

// ImportResult summarizes a bulk account import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

type importRecord struct {
	line   int
	fields map[string]string
}

func parseImportLines(content, separator string, format []string) ([]importRecord, []string) {
	if separator == "" {
		separator = DefaultImportSeparator
	}
	if len(format) == 0 {
		format = DefaultImportFormat
	}

	var records []importRecord
	var errs []string
	lineNo := 0
	for _, raw := range strings.Split(content, "\n") {
		lineNo++
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		parts := strings.Split(line, separator)
		fields := map[string]string{}
		for i, name := range format {
			if i < len(parts) {
				fields[name] = strings.TrimSpace(parts[i])
			}
		}
		if fields["email"] == "" || fields["client_id"] == "" || fields["refresh_token"] == "" {
			errs = append(errs, fmt.Sprintf("Line %d: missing required fields", lineNo))
			continue
		}
		records = append(records, importRecord{line: lineNo, fields: fields})
	}
	return records, errs
}

// Import bulk-loads accounts from line-separated text. Existing emails are
// skipped, or overwritten when overwrite is true. The whole import is one
// transaction.
func (s *AccountStore) Import(content, separator string, format []string, overwrite bool) (*ImportResult, error) {
	records, errs := parseImportLines(content, separator, format)
	result := &ImportResult{Errors: errs}
	if result.Errors == nil {
		result.Errors = []string{}
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		var existing int64
		err := tx.Get(&existing, "SELECT id FROM accounts WHERE email = ?", rec.fields["email"])
		switch {
		case err == nil && overwrite:
			_, err = tx.Exec(
				`UPDATE accounts SET password = ?, client_id = ?, refresh_token = ?,
				 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				rec.fields["password"], rec.fields["client_id"], rec.fields["refresh_token"], existing,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to overwrite account on line %d: %w", rec.line, err)
			}
			result.Imported++
		case err == nil:
			result.Skipped++
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.Exec(
				"INSERT INTO accounts (email, password, client_id, refresh_token) VALUES (?, ?, ?, ?)",
				rec.fields["email"], rec.fields["password"], rec.fields["client_id"], rec.fields["refresh_token"],
			)
			if err != nil {
				return nil, fmt.Errorf("failed to import account on line %d: %w", rec.line, err)
			}
			result.Imported++
		default:
			return nil, fmt.Errorf("failed to check existing account on line %d: %w", rec.line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	s.logger.WithField("imported", result.Imported).WithField("skipped", result.Skipped).Info("Account import finished")
	return result, nil
}

// Export renders accounts back into import-compatible lines. Empty ids
// means every account.
func (s *AccountStore) Export(ids []int64, separator string, format []string) (string, error) {
	if separator == "" {
		separator = DefaultImportSeparator
	}
	if len(format) == 0 {
		format = DefaultImportFormat
	}

	var accounts []types.Account
	var err error
	if len(ids) > 0 {
		accounts = []types.Account{}
		query, args, inErr := sqlx.In("SELECT * FROM accounts WHERE id IN (?) ORDER BY id DESC", ids)
		if inErr != nil {
			return "", fmt.Errorf("failed to build export query: %w", inErr)
		}
		err = s.db.Select(&accounts, s.db.Rebind(query), args...)
	} else {
		accounts, err = s.GetAll()
	}
	if err != nil {
		return "", fmt.Errorf("failed to export accounts: %w", err)
	}

	lines := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		values := map[string]string{
			"email":         acc.Email,
			"password":      acc.Password,
			"client_id":     acc.ClientID,
			"refresh_token": acc.RefreshToken,
			"remark":        acc.Remark,
		}
		parts := make([]string, len(format))
		for i, name := range format {
			parts[i] = values[name]
		}
		lines = append(lines, strings.Join(parts, separator))
	}
	return strings.Join(lines, "\n"), nil
}
