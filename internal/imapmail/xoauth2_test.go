package imapmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildXoauth2_Payload(t *testing.T) {
	got := BuildXoauth2("a@b.com", "TOKEN")

	decoded, err := base64.StdEncoding.DecodeString(got)
	require.NoError(t, err)
	assert.Equal(t, "user=a@b.com\x01auth=Bearer TOKEN\x01\x01", string(decoded))
}

func TestBuildXoauth2_Deterministic(t *testing.T) {
	assert.Equal(t,
		BuildXoauth2("u@example.com", "t"),
		BuildXoauth2("u@example.com", "t"))
}

func TestXoauth2Client_StartReturnsDecodedPayload(t *testing.T) {
	auth := BuildXoauth2("u@example.com", "secret")
	cl := newXoauth2Client(auth)

	mech, ir, err := cl.Start()
	require.NoError(t, err)
	assert.Equal(t, "XOAUTH2", mech)
	assert.Equal(t, "user=u@example.com\x01auth=Bearer secret\x01\x01", string(ir))
}

func TestXoauth2Client_StartRejectsInvalidBase64(t *testing.T) {
	cl := newXoauth2Client("not base64 !!!")
	_, _, err := cl.Start()
	require.Error(t, err)
}

func TestXoauth2Client_NextSendsEmptyReply(t *testing.T) {
	cl := newXoauth2Client(BuildXoauth2("u@example.com", "t"))
	reply, err := cl.Next([]byte("eyJzdGF0dXMiOiI0MDAifQ=="))
	require.NoError(t, err)
	assert.Empty(t, reply)
}
