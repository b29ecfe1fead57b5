package store

// Schema contains the SQL schema for the datastore.
const Schema = `
-- Managed mailbox accounts
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL,
    password TEXT DEFAULT '',
    client_id TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    remark TEXT DEFAULT '',
    status TEXT DEFAULT 'active' CHECK(status IN ('active','inactive','error')),
    last_synced_at DATETIME,
    token_refreshed_at DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);

-- Egress proxies
CREATE TABLE IF NOT EXISTS proxies (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL CHECK(type IN ('socks5','http')),
    host TEXT NOT NULL,
    port INTEGER NOT NULL,
    username TEXT DEFAULT '',
    password TEXT DEFAULT '',
    is_default INTEGER DEFAULT 0,
    last_tested_at DATETIME,
    last_test_ip TEXT DEFAULT '',
    status TEXT DEFAULT 'untested' CHECK(status IN ('untested','active','failed')),
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Cached message summaries, the degraded-mode fallback
CREATE TABLE IF NOT EXISTS mail_cache (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL,
    mailbox TEXT NOT NULL DEFAULT 'INBOX' CHECK(mailbox IN ('INBOX','Junk')),
    mail_id TEXT DEFAULT '',
    sender TEXT DEFAULT '',
    sender_name TEXT DEFAULT '',
    subject TEXT DEFAULT '',
    text_content TEXT DEFAULT '',
    html_content TEXT DEFAULT '',
    mail_date DATETIME,
    cached_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

-- Records with a provider-assigned id are upserted in place; records
-- without one (IMAP) are appended, so the identity index is partial.
CREATE UNIQUE INDEX IF NOT EXISTS idx_mail_cache_identity
    ON mail_cache(account_id, mailbox, mail_id) WHERE mail_id != '';
CREATE INDEX IF NOT EXISTS idx_mail_cache_account ON mail_cache(account_id, mailbox);
CREATE INDEX IF NOT EXISTS idx_mail_cache_date ON mail_cache(mail_date DESC);
`
