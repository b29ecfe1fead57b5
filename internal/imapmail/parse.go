package imapmail

import (
	"fmt"
	"net/mail"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// parseMessage turns one fetched IMAP message into a MailSummary.
func parseMessage(msg *imap.Message, section *imap.BodySectionName) (*types.MailSummary, error) {
	literal := msg.GetBody(section)
	if literal == nil {
		return nil, fmt.Errorf("message %d has no body section", msg.SeqNum)
	}

	env, err := enmime.ReadEnvelope(literal)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIME envelope: %w", err)
	}

	summary := &types.MailSummary{
		Subject:     env.GetHeader("Subject"),
		TextContent: env.Text,
		HTMLContent: env.HTML,
	}

	if from := env.GetHeader("From"); from != "" {
		if addr, err := mail.ParseAddress(from); err == nil {
			summary.Sender = addr.Address
			summary.SenderName = addr.Name
		} else {
			summary.Sender = from
		}
	}

	if date := env.GetHeader("Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			summary.MailDate = &t
		}
	}

	return summary, nil
}
