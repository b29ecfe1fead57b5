package mail

import (
	"context"
	"errors"

	"github.com/keh4l/outlook-mail-manager/internal/imapmail"
	"github.com/keh4l/outlook-mail-manager/internal/proxygw"
	"github.com/keh4l/outlook-mail-manager/internal/token"
	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// errNoMailScope marks a Graph token that came back without Mail.Read;
// the branch is skipped rather than attempted with a doomed call.
var errNoMailScope = errors.New("granted token lacks Mail.Read scope")

type stageStatus int

const (
	stageOK stageStatus = iota
	stageFailed
)

// stageResult is the explicit outcome of one protocol branch. Failures
// carry the error that caused them so the terminal path can report the
// last one seen.
type stageResult struct {
	status stageStatus
	mails  []types.MailSummary
	err    error
}

func stageSuccess(mails []types.MailSummary) stageResult {
	return stageResult{status: stageOK, mails: mails}
}

func stageFailure(err error) stageResult {
	return stageResult{status: stageFailed, err: err}
}

// tryGraphList exchanges a Graph-profile token and lists the folder. The
// rotated refresh token is persisted before the Graph call is attempted,
// so a later protocol failure never loses the rotation.
func (s *Service) tryGraphList(ctx context.Context, account *types.Account, folder types.Folder, limit int, eg *proxygw.Egress) stageResult {
	s.metrics.FetchAttempts.WithLabelValues(types.ProtocolGraph).Inc()

	tok, err := s.broker.Exchange(ctx, account.ClientID, account.RefreshToken, token.ProfileGraph, eg)
	if err != nil {
		s.metrics.FetchFailures.WithLabelValues(types.ProtocolGraph).Inc()
		return stageFailure(err)
	}
	s.persistRotation(account.ID, tok)

	if !tok.HasMailScope {
		s.metrics.FetchFailures.WithLabelValues(types.ProtocolGraph).Inc()
		return stageFailure(errNoMailScope)
	}

	mails, err := s.graph.List(ctx, tok.AccessToken, folder, limit, eg)
	if err != nil {
		s.metrics.FetchFailures.WithLabelValues(types.ProtocolGraph).Inc()
		return stageFailure(err)
	}
	return stageSuccess(mails)
}

// tryIMAPList exchanges an IMAP-profile token against the freshest stored
// refresh token and lists the folder over IMAP.
func (s *Service) tryIMAPList(ctx context.Context, account *types.Account, folder types.Folder, limit int, eg *proxygw.Egress) stageResult {
	s.metrics.FetchAttempts.WithLabelValues(types.ProtocolIMAP).Inc()

	refreshToken := s.freshRefreshToken(account)
	tok, err := s.broker.Exchange(ctx, account.ClientID, refreshToken, token.ProfileIMAP, eg)
	if err != nil {
		s.metrics.FetchFailures.WithLabelValues(types.ProtocolIMAP).Inc()
		return stageFailure(err)
	}
	s.persistRotation(account.ID, tok)

	auth := imapmail.BuildXoauth2(account.Email, tok.AccessToken)
	mails, err := s.imap.List(ctx, account.Email, auth, folder, limit, eg)
	if err != nil {
		s.metrics.FetchFailures.WithLabelValues(types.ProtocolIMAP).Inc()
		return stageFailure(err)
	}
	return stageSuccess(mails)
}
