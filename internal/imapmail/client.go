package imapmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"github.com/keh4l/outlook-mail-manager/internal/proxygw"
	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// Client retrieves and clears mail over IMAP with XOAUTH2. Each call opens
// its own TLS session and closes it before returning.
type Client struct {
	host    string
	addr    string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient creates an IMAP client for host:port.
func NewClient(host string, port int, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		host:    host,
		addr:    fmt.Sprintf("%s:%d", host, port),
		timeout: timeout,
		logger:  logger,
	}
}

// connect dials the server through the egress dialer, wraps the connection
// in TLS and authenticates with XOAUTH2.
func (c *Client) connect(ctx context.Context, authString string, eg *proxygw.Egress) (*client.Client, error) {
	conn, err := dialContext(ctx, eg.Dialer, c.addr)
	if err != nil {
		return nil, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("failed to connect: %w", err)}
	}

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName: c.host,
		MinVersion: tls.VersionTLS12,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("TLS handshake failed: %w", err)}
	}

	cl, err := client.New(tlsConn)
	if err != nil {
		tlsConn.Close()
		return nil, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("failed to open session: %w", err)}
	}
	cl.Timeout = c.timeout

	if err := cl.Authenticate(newXoauth2Client(authString)); err != nil {
		cl.Logout() //nolint:errcheck
		return nil, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("XOAUTH2 authentication failed: %w", err)}
	}
	return cl, nil
}

// newestWindow keeps at most limit sequence numbers. Search returns them
// ascending, so the tail of the slice is the most recent messages.
func newestWindow(seqNums []uint32, limit int) []uint32 {
	if len(seqNums) <= limit {
		return seqNums
	}
	return seqNums[len(seqNums)-limit:]
}

func dialContext(ctx context.Context, d proxy.Dialer, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", addr)
	}
	return d.Dial("tcp", addr)
}

// List fetches up to limit most-recent messages from the folder and parses
// each into a MailSummary. Results come back in mailbox sequence order
// (oldest of the window first). A parse failure for one message is logged
// and skipped; connection, auth and search errors fail the whole call.
func (c *Client) List(ctx context.Context, email, authString string, folder types.Folder, limit int, eg *proxygw.Egress) ([]types.MailSummary, error) {
	cl, err := c.connect(ctx, authString, eg)
	if err != nil {
		return nil, err
	}
	defer cl.Logout() //nolint:errcheck

	if _, err := cl.Select(string(folder), true); err != nil {
		return nil, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("failed to open %s: %w", folder, err)}
	}

	seqNums, err := cl.Search(imap.NewSearchCriteria())
	if err != nil {
		return nil, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("search failed: %w", err)}
	}
	if len(seqNums) == 0 {
		return []types.MailSummary{}, nil
	}

	seqNums = newestWindow(seqNums, limit)
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- cl.Fetch(seqSet, items, messages)
	}()

	mails := make([]types.MailSummary, 0, len(seqNums))
	parseFailures := 0
	for msg := range messages {
		summary, err := parseMessage(msg, section)
		if err != nil {
			parseFailures++
			c.logger.WithError(err).WithField("seq", msg.SeqNum).Error("Failed to parse message")
			continue
		}
		mails = append(mails, *summary)
	}

	if err := <-done; err != nil {
		return nil, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("fetch failed: %w", err)}
	}

	c.logger.WithFields(logrus.Fields{
		"account":        email,
		"folder":         string(folder),
		"count":          len(mails),
		"parse_failures": parseFailures,
	}).Info("IMAP fetched mails")
	return mails, nil
}

// Clear opens the folder read-write, flags every message deleted and
// expunges. Returns how many messages were flagged; an empty mailbox is a
// no-op.
func (c *Client) Clear(ctx context.Context, email, authString string, folder types.Folder, eg *proxygw.Egress) (int, error) {
	cl, err := c.connect(ctx, authString, eg)
	if err != nil {
		return 0, err
	}
	defer cl.Logout() //nolint:errcheck

	if _, err := cl.Select(string(folder), false); err != nil {
		return 0, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("failed to open %s: %w", folder, err)}
	}

	seqNums, err := cl.Search(imap.NewSearchCriteria())
	if err != nil {
		return 0, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("search failed: %w", err)}
	}
	if len(seqNums) == 0 {
		return 0, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	flagItem := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := cl.Store(seqSet, flagItem, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return 0, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("failed to flag messages: %w", err)}
	}
	if err := cl.Expunge(nil); err != nil {
		return 0, &types.ProtocolError{Protocol: types.ProtocolIMAP, Err: fmt.Errorf("expunge failed: %w", err)}
	}

	c.logger.WithFields(logrus.Fields{
		"account": email,
		"folder":  string(folder),
		"count":   len(seqNums),
	}).Info("IMAP cleared mailbox")
	return len(seqNums), nil
}
