package graph

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keh4l/outlook-mail-manager/internal/proxygw"
	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func directEgress() *proxygw.Egress {
	return &proxygw.Egress{Mode: proxygw.ModeDirect, Client: http.DefaultClient}
}

const listBody = `{
	"value": [
		{
			"id": "msg-1",
			"subject": "Welcome",
			"bodyPreview": "Hello there",
			"body": {"content": "<p>Hello there</p>"},
			"from": {"emailAddress": {"address": "noreply@example.com", "name": "Example"}},
			"createdDateTime": "2024-05-01T10:30:00Z"
		},
		{
			"id": "msg-2",
			"subject": "Second",
			"bodyPreview": "More text",
			"body": {"content": ""},
			"from": {"emailAddress": {"address": "a@b.com", "name": ""}},
			"createdDateTime": ""
		}
	]
}`

func TestList_MapsMessages(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(listBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	mails, err := c.List(context.Background(), "tok", types.FolderInbox, 25, directEgress())
	require.NoError(t, err)

	assert.Equal(t, "/me/mailFolders/inbox/messages?$top=25", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)

	require.Len(t, mails, 2)
	assert.Equal(t, "msg-1", mails[0].MailID)
	assert.Equal(t, "Welcome", mails[0].Subject)
	assert.Equal(t, "Hello there", mails[0].TextContent)
	assert.Equal(t, "<p>Hello there</p>", mails[0].HTMLContent)
	assert.Equal(t, "noreply@example.com", mails[0].Sender)
	assert.Equal(t, "Example", mails[0].SenderName)
	require.NotNil(t, mails[0].MailDate)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), mails[0].MailDate.UTC())

	// A missing timestamp stays nil instead of zero time.
	assert.Nil(t, mails[1].MailDate)
}

func TestList_JunkFolderPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"value": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.List(context.Background(), "tok", types.FolderJunk, 10, directEgress())
	require.NoError(t, err)
	assert.Equal(t, "/me/mailFolders/junkemail/messages", gotPath)
}

func TestList_ErrorStatusBecomesProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"code": "InvalidAuthenticationToken"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.List(context.Background(), "tok", types.FolderInbox, 10, directEgress())
	require.Error(t, err)

	var pe *types.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, types.ProtocolGraph, pe.Protocol)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.Contains(t, pe.Body, "InvalidAuthenticationToken")
}

func TestDeleteAll_EmptyFolderDeletesNothing(t *testing.T) {
	var deletes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			atomic.AddInt32(&deletes, 1)
		}
		w.Write([]byte(`{"value": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	stats, err := c.DeleteAll(context.Background(), "tok", types.FolderInbox, directEgress())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Attempted)
	assert.Equal(t, 0, stats.Deleted)
	assert.Equal(t, int32(0), atomic.LoadInt32(&deletes))
}

func TestDeleteAll_ReportsPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.Write([]byte(`{"value": [
				{"id": "ok-1"}, {"id": "gone"}, {"id": "broken"}
			]}`))
			return
		}
		switch r.URL.Path {
		case "/me/messages/gone":
			// Already deleted elsewhere; still counts as success.
			w.WriteHeader(http.StatusNotFound)
		case "/me/messages/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	stats, err := c.DeleteAll(context.Background(), "tok", types.FolderInbox, directEgress())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Attempted)
	assert.Equal(t, 2, stats.Deleted)
}

func TestDeleteAll_ListFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.DeleteAll(context.Background(), "tok", types.FolderJunk, directEgress())
	var pe *types.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusForbidden, pe.Status)
}
