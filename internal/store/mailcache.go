package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// MailCache is the persisted store of fetched message summaries. It serves
// cached reads and is the last-resort fallback when both live protocols
// fail.
type MailCache struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewMailCache creates a new mail cache over the shared datastore.
func NewMailCache(db *sqlx.DB, logger *logrus.Logger) *MailCache {
	return &MailCache{db: db, logger: logger}
}

// Upsert writes one batch of summaries for an account and folder inside a
// single transaction, so a concurrent reader never sees a half-written
// page. Summaries carrying a provider message id replace any previous row
// with the same identity; summaries without one are appended.
func (c *MailCache) Upsert(accountID int64, folder types.Folder, mails []types.MailSummary) error {
	if len(mails) == 0 {
		return nil
	}

	tx, err := c.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin cache upsert: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.Prepare(`
		INSERT INTO mail_cache (account_id, mailbox, mail_id, sender, sender_name, subject, text_content, html_content, mail_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, mailbox, mail_id) WHERE mail_id != '' DO UPDATE SET
			sender = excluded.sender,
			sender_name = excluded.sender_name,
			subject = excluded.subject,
			text_content = excluded.text_content,
			html_content = excluded.html_content,
			mail_date = excluded.mail_date,
			cached_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cache upsert: %w", err)
	}
	defer upsert.Close()

	for _, m := range mails {
		if _, err := upsert.Exec(
			accountID, string(folder), m.MailID, m.Sender, m.SenderName,
			m.Subject, m.TextContent, m.HTMLContent, m.MailDate,
		); err != nil {
			return fmt.Errorf("failed to cache message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache upsert: %w", err)
	}
	return nil
}

// GetPage reads one page of cached summaries ordered by message date
// descending.
func (c *MailCache) GetPage(accountID int64, folder types.Folder, page, pageSize int) ([]types.MailSummary, int, error) {
	if page < 1 {
		page = 1
	}

	var total int
	err := c.db.Get(&total,
		"SELECT COUNT(*) FROM mail_cache WHERE account_id = ? AND mailbox = ?",
		accountID, string(folder),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count cached mail: %w", err)
	}

	mails := []types.MailSummary{}
	err = c.db.Select(&mails,
		"SELECT * FROM mail_cache WHERE account_id = ? AND mailbox = ? ORDER BY mail_date DESC LIMIT ? OFFSET ?",
		accountID, string(folder), pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read cached mail: %w", err)
	}
	return mails, total, nil
}

// Clear drops every cached summary for one account and folder.
func (c *MailCache) Clear(accountID int64, folder types.Folder) error {
	_, err := c.db.Exec(
		"DELETE FROM mail_cache WHERE account_id = ? AND mailbox = ?",
		accountID, string(folder),
	)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// CountForAccount returns the cached message count for one account+folder.
func (c *MailCache) CountForAccount(accountID int64, folder types.Folder) (int, error) {
	var n int
	err := c.db.Get(&n,
		"SELECT COUNT(*) FROM mail_cache WHERE account_id = ? AND mailbox = ?",
		accountID, string(folder),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count cached mail: %w", err)
	}
	return n, nil
}

// CountGlobal returns the cached message count for one folder across all
// accounts.
func (c *MailCache) CountGlobal(folder types.Folder) (int, error) {
	var n int
	err := c.db.Get(&n, "SELECT COUNT(*) FROM mail_cache WHERE mailbox = ?", string(folder))
	if err != nil {
		return 0, fmt.Errorf("failed to count cached mail: %w", err)
	}
	return n, nil
}

// Recent returns the newest cached summaries across all accounts.
func (c *MailCache) Recent(limit int) ([]types.MailSummary, error) {
	mails := []types.MailSummary{}
	err := c.db.Select(&mails, "SELECT * FROM mail_cache ORDER BY mail_date DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent mail: %w", err)
	}
	return mails, nil
}
