package imapmail

import (
	"encoding/base64"
	"fmt"

	"github.com/emersion/go-sasl"
)

// BuildXoauth2 builds the base64-encoded SASL XOAUTH2 initial response for
// an email address and bearer access token. Pure function, no I/O.
func BuildXoauth2(email, accessToken string) string {
	raw := fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", email, accessToken)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// xoauth2Client presents a pre-built XOAUTH2 auth string as a sasl.Client.
// The IMAP client base64-encodes the initial response itself, so Start
// hands back the decoded payload.
type xoauth2Client struct {
	authString string
}

func newXoauth2Client(authString string) sasl.Client {
	return &xoauth2Client{authString: authString}
}

func (c *xoauth2Client) Start() (string, []byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(c.authString)
	if err != nil {
		return "", nil, fmt.Errorf("invalid XOAUTH2 auth string: %w", err)
	}
	return "XOAUTH2", decoded, nil
}

func (c *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	// On failure the server sends a base64 JSON blob as a challenge; an
	// empty reply tells it to finish rejecting the exchange.
	return []byte{}, nil
}
