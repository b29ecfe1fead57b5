package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keh4l/outlook-mail-manager/internal/proxygw"
	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

const (
	// deleteListBound caps how many messages one DeleteAll pass handles.
	deleteListBound = 10000
	// deleteBatchSize is the width of one concurrent deletion batch.
	deleteBatchSize = 10
)

// Client speaks the Graph REST mail API with a bearer access token.
type Client struct {
	baseURL string
	logger  *logrus.Logger
}

// NewClient creates a Graph client against baseURL (the ".../v1.0" root).
func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{baseURL: baseURL, logger: logger}
}

type graphMessage struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	BodyPreview string `json:"bodyPreview"`
	Body        struct {
		Content string `json:"content"`
	} `json:"body"`
	From struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
	} `json:"from"`
	CreatedDateTime string `json:"createdDateTime"`
}

type listResponse struct {
	Value []graphMessage `json:"value"`
}

// List fetches up to limit most-recent messages from the mapped folder.
func (c *Client) List(ctx context.Context, accessToken string, folder types.Folder, limit int, eg *proxygw.Egress) ([]types.MailSummary, error) {
	url := fmt.Sprintf("%s/me/mailFolders/%s/messages?$top=%d", c.baseURL, folder.GraphName(), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := eg.Client.Do(req)
	if err != nil {
		return nil, &types.ProtocolError{Protocol: types.ProtocolGraph, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &types.ProtocolError{Protocol: types.ProtocolGraph, Status: resp.StatusCode, Body: string(body)}
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &types.ProtocolError{Protocol: types.ProtocolGraph, Err: err}
	}

	mails := make([]types.MailSummary, 0, len(list.Value))
	for _, item := range list.Value {
		mails = append(mails, types.MailSummary{
			MailID:      item.ID,
			Sender:      item.From.EmailAddress.Address,
			SenderName:  item.From.EmailAddress.Name,
			Subject:     item.Subject,
			TextContent: item.BodyPreview,
			HTMLContent: item.Body.Content,
			MailDate:    parseGraphTime(item.CreatedDateTime),
		})
	}

	c.logger.WithField("folder", folder.GraphName()).WithField("count", len(mails)).Info("Graph API fetched mails")
	return mails, nil
}

// DeleteAll lists up to deleteListBound messages in the folder and deletes
// them one by one in concurrent batches. A failed deletion does not abort
// its batch; the stats report attempted vs confirmed so callers can see
// partial failure.
func (c *Client) DeleteAll(ctx context.Context, accessToken string, folder types.Folder, eg *proxygw.Egress) (*types.DeleteStats, error) {
	mails, err := c.List(ctx, accessToken, folder, deleteListBound, eg)
	if err != nil {
		return nil, err
	}

	stats := &types.DeleteStats{Attempted: len(mails)}
	for start := 0; start < len(mails); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(mails) {
			end = len(mails)
		}
		batch := mails[start:end]

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, m := range batch {
			wg.Add(1)
			go func(mailID string) {
				defer wg.Done()
				if err := c.deleteOne(ctx, accessToken, mailID, eg); err != nil {
					c.logger.WithError(err).WithField("mail_id", mailID).Warn("Failed to delete message")
					return
				}
				mu.Lock()
				stats.Deleted++
				mu.Unlock()
			}(m.MailID)
		}
		wg.Wait()
	}

	c.logger.WithFields(logrus.Fields{
		"folder":    folder.GraphName(),
		"attempted": stats.Attempted,
		"deleted":   stats.Deleted,
	}).Info("Graph API bulk delete finished")
	return stats, nil
}

func (c *Client) deleteOne(ctx context.Context, accessToken, mailID string, eg *proxygw.Egress) error {
	url := fmt.Sprintf("%s/me/messages/%s", c.baseURL, mailID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := eg.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	// 404 means the message is already gone, which is what we wanted.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete returned status %d", resp.StatusCode)
	}
	return nil
}

func parseGraphTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
