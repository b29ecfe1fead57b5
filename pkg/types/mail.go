package types

import (
	"fmt"
	"time"
)

// Folder is the closed set of mailboxes the manager operates on.
type Folder string

const (
	FolderInbox Folder = "INBOX"
	FolderJunk  Folder = "Junk"
)

// ParseFolder validates a user-supplied mailbox name. An empty string
// defaults to INBOX.
func ParseFolder(s string) (Folder, error) {
	switch s {
	case "", string(FolderInbox):
		return FolderInbox, nil
	case string(FolderJunk):
		return FolderJunk, nil
	}
	return "", fmt.Errorf("unsupported mailbox: %q", s)
}

// GraphName maps the folder to the well-known folder name used by the
// Graph REST API.
func (f Folder) GraphName() string {
	if f == FolderJunk {
		return "junkemail"
	}
	return "inbox"
}

// Account status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusError    = "error"
)

// Account is one managed mailbox identity. The refresh token is owned
// exclusively by the account row and is replaced wholesale on rotation.
type Account struct {
	ID               int64      `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Password         string     `db:"password" json:"password"`
	ClientID         string     `db:"client_id" json:"client_id"`
	RefreshToken     string     `db:"refresh_token" json:"refresh_token"`
	Remark           string     `db:"remark" json:"remark"`
	Status           string     `db:"status" json:"status"`
	LastSyncedAt     *time.Time `db:"last_synced_at" json:"last_synced_at"`
	TokenRefreshedAt *time.Time `db:"token_refreshed_at" json:"token_refreshed_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Proxy describes an egress proxy endpoint.
type Proxy struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Type         string     `db:"type" json:"type"` // "socks5" or "http"
	Host         string     `db:"host" json:"host"`
	Port         int        `db:"port" json:"port"`
	Username     string     `db:"username" json:"username"`
	Password     string     `db:"password" json:"password"`
	IsDefault    bool       `db:"is_default" json:"is_default"`
	LastTestedAt *time.Time `db:"last_tested_at" json:"last_tested_at"`
	LastTestIP   string     `db:"last_test_ip" json:"last_test_ip"`
	Status       string     `db:"status" json:"status"` // untested, active, failed
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// MailSummary is one retrieved message. MailID is the provider-assigned
// message id; it is opaque, protocol-specific and may be empty for IMAP
// results.
type MailSummary struct {
	ID          int64      `db:"id" json:"id"`
	AccountID   int64      `db:"account_id" json:"account_id"`
	Mailbox     Folder     `db:"mailbox" json:"mailbox"`
	MailID      string     `db:"mail_id" json:"mail_id"`
	Sender      string     `db:"sender" json:"sender"`
	SenderName  string     `db:"sender_name" json:"sender_name"`
	Subject     string     `db:"subject" json:"subject"`
	TextContent string     `db:"text_content" json:"text_content"`
	HTMLContent string     `db:"html_content" json:"html_content"`
	MailDate    *time.Time `db:"mail_date" json:"mail_date"`
	CachedAt    *time.Time `db:"cached_at" json:"cached_at,omitempty"`
}

// TokenResult is the outcome of one refresh-token exchange. RefreshToken is
// set only when the provider rotated the stored token; it must then replace
// the account's token before any further exchange.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	HasMailScope bool
	ExpiresIn    int
}

// Protocol labels for fetch results.
const (
	ProtocolGraph = "graph"
	ProtocolIMAP  = "imap"
)

// FetchResult is what a retrieval returns to the caller. Cached marks a
// degraded response served from the local cache after both live protocols
// failed; the protocol label is informational only in that case.
type FetchResult struct {
	Mails    []MailSummary `json:"mails"`
	Total    int           `json:"total"`
	Protocol string        `json:"protocol"`
	Cached   bool          `json:"cached"`
}

// DeleteStats reports a best-effort bulk deletion: how many messages were
// attempted and how many the provider confirmed.
type DeleteStats struct {
	Attempted int `json:"attempted"`
	Deleted   int `json:"deleted"`
}
