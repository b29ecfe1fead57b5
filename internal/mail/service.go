package mail

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/keh4l/outlook-mail-manager/internal/imapmail"
	"github.com/keh4l/outlook-mail-manager/internal/metrics"
	"github.com/keh4l/outlook-mail-manager/internal/proxygw"
	"github.com/keh4l/outlook-mail-manager/internal/token"
	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// TokenExchanger is the token broker surface the coordinator needs.
type TokenExchanger interface {
	Exchange(ctx context.Context, clientID, refreshToken string, profile token.ScopeProfile, eg *proxygw.Egress) (*types.TokenResult, error)
}

// GraphClient is the Graph protocol surface the coordinator needs.
type GraphClient interface {
	List(ctx context.Context, accessToken string, folder types.Folder, limit int, eg *proxygw.Egress) ([]types.MailSummary, error)
	DeleteAll(ctx context.Context, accessToken string, folder types.Folder, eg *proxygw.Egress) (*types.DeleteStats, error)
}

// IMAPClient is the IMAP protocol surface the coordinator needs.
type IMAPClient interface {
	List(ctx context.Context, email, authString string, folder types.Folder, limit int, eg *proxygw.Egress) ([]types.MailSummary, error)
	Clear(ctx context.Context, email, authString string, folder types.Folder, eg *proxygw.Egress) (int, error)
}

// AccountStore is the account persistence surface the coordinator needs.
type AccountStore interface {
	GetByID(id int64) (*types.Account, error)
	UpdateTokenRefresh(id int64, newRefreshToken string) error
	UpdateSyncTime(id int64) error
	MarkError(id int64) error
}

// Cache is the mail cache surface the coordinator needs.
type Cache interface {
	Upsert(accountID int64, folder types.Folder, mails []types.MailSummary) error
	GetPage(accountID int64, folder types.Folder, page, pageSize int) ([]types.MailSummary, int, error)
}

// EgressResolver resolves proxy ids to egress strategies.
type EgressResolver interface {
	Resolve(proxyID *int64) *proxygw.Egress
}

// Service orchestrates retrieval and deletion across the two protocols:
// Graph first, IMAP as fallback, the cache as the degraded last resort.
// Graph always goes first because its token exchange may rotate the
// refresh token, and the rotation must be captured before the IMAP branch
// presents the token again.
type Service struct {
	accounts AccountStore
	cache    Cache
	gateway  EgressResolver
	broker   TokenExchanger
	graph    GraphClient
	imap     IMAPClient
	metrics  *metrics.Metrics
	logger   *logrus.Logger

	defaultLimit int
}

// NewService wires the coordinator. defaultLimit is used when the caller
// passes no message limit, and as the degraded-read page size.
func NewService(
	accounts AccountStore,
	cache Cache,
	gateway EgressResolver,
	broker TokenExchanger,
	graph GraphClient,
	imap IMAPClient,
	m *metrics.Metrics,
	defaultLimit int,
	logger *logrus.Logger,
) *Service {
	return &Service{
		accounts:     accounts,
		cache:        cache,
		gateway:      gateway,
		broker:       broker,
		graph:        graph,
		imap:         imap,
		metrics:      m,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// persistRotation writes back a rotated refresh token (or just the refresh
// timestamp) immediately after an exchange. The provider may have already
// invalidated the old token, so losing the new one would lock the account
// out; a storage failure here is surfaced loudly even though the retrieval
// goes on.
func (s *Service) persistRotation(accountID int64, tok *types.TokenResult) {
	if err := s.accounts.UpdateTokenRefresh(accountID, tok.RefreshToken); err != nil {
		s.logger.WithError(err).WithField("account_id", accountID).
			Error("Failed to persist rotated refresh token; account may lose access")
	}
}

// Fetch retrieves up to limit most-recent messages for an account.
func (s *Service) Fetch(ctx context.Context, accountID int64, folder types.Folder, proxyID *int64, limit int) (*types.FetchResult, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	eg := s.gateway.Resolve(proxyID)

	res := s.tryGraphList(ctx, account, folder, limit, eg)
	if res.status == stageOK {
		s.recordSuccess(accountID, folder, res.mails)
		return &types.FetchResult{
			Mails:    res.mails,
			Total:    len(res.mails),
			Protocol: types.ProtocolGraph,
			Cached:   false,
		}, nil
	}
	s.metrics.Fallbacks.Inc()
	s.logger.WithError(res.err).WithField("account", account.Email).Warn("Graph branch failed, falling back to IMAP")

	res = s.tryIMAPList(ctx, account, folder, limit, eg)
	if res.status == stageOK {
		s.recordSuccess(accountID, folder, res.mails)
		return &types.FetchResult{
			Mails:    res.mails,
			Total:    len(res.mails),
			Protocol: types.ProtocolIMAP,
			Cached:   false,
		}, nil
	}
	s.logger.WithError(res.err).WithField("account", account.Email).Error("IMAP branch also failed")

	return s.degraded(accountID, folder, limit, res.err)
}

// degraded marks the account and serves the cache, or surfaces the
// terminal failure when the cache is empty.
func (s *Service) degraded(accountID int64, folder types.Folder, limit int, last error) (*types.FetchResult, error) {
	if err := s.accounts.MarkError(accountID); err != nil {
		s.logger.WithError(err).WithField("account_id", accountID).Warn("Failed to mark account as error")
	}

	cached, total, err := s.cache.GetPage(accountID, folder, 1, limit)
	if err != nil {
		s.logger.WithError(err).WithField("account_id", accountID).Warn("Cache read failed during degraded fetch")
	}
	if len(cached) > 0 {
		s.metrics.DegradedReads.Inc()
		// The protocol label is informational only here; the cache does not
		// track which protocol originally produced a record.
		return &types.FetchResult{
			Mails:    cached,
			Total:    total,
			Protocol: types.ProtocolGraph,
			Cached:   true,
		}, nil
	}
	return nil, &types.AggregateError{Last: last}
}

func (s *Service) recordSuccess(accountID int64, folder types.Folder, mails []types.MailSummary) {
	if err := s.cache.Upsert(accountID, folder, mails); err != nil {
		s.logger.WithError(err).WithField("account_id", accountID).Warn("Failed to cache fetched mail")
	}
	if err := s.accounts.UpdateSyncTime(accountID); err != nil {
		s.logger.WithError(err).WithField("account_id", accountID).Warn("Failed to stamp sync time")
	}
}

// ClearMailbox deletes every message in the folder, Graph first with IMAP
// fallback. The cache entry for the folder is not touched here; callers
// purge it separately once the remote delete returns.
func (s *Service) ClearMailbox(ctx context.Context, accountID int64, folder types.Folder, proxyID *int64) (*types.DeleteStats, error) {
	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	eg := s.gateway.Resolve(proxyID)

	stats, gerr := s.tryGraphClear(ctx, account, folder, eg)
	if gerr == nil {
		s.metrics.ClearTotal.WithLabelValues(types.ProtocolGraph).Inc()
		return stats, nil
	}
	s.logger.WithError(gerr).WithField("account", account.Email).Warn("Graph delete failed, trying IMAP")

	stats, err = s.tryIMAPClear(ctx, account, folder, eg)
	if err != nil {
		return nil, err
	}
	s.metrics.ClearTotal.WithLabelValues(types.ProtocolIMAP).Inc()
	return stats, nil
}

// freshRefreshToken re-reads the account so the IMAP branch presents the
// newest stored refresh token; the Graph branch may have rotated it a
// moment ago. Falls back to the token loaded at call start if the re-read
// fails.
func (s *Service) freshRefreshToken(account *types.Account) string {
	fresh, err := s.accounts.GetByID(account.ID)
	if err != nil || fresh == nil {
		return account.RefreshToken
	}
	return fresh.RefreshToken
}

func (s *Service) tryGraphClear(ctx context.Context, account *types.Account, folder types.Folder, eg *proxygw.Egress) (*types.DeleteStats, error) {
	tok, err := s.broker.Exchange(ctx, account.ClientID, account.RefreshToken, token.ProfileGraph, eg)
	if err != nil {
		return nil, err
	}
	s.persistRotation(account.ID, tok)

	if !tok.HasMailScope {
		return nil, errNoMailScope
	}
	return s.graph.DeleteAll(ctx, tok.AccessToken, folder, eg)
}

func (s *Service) tryIMAPClear(ctx context.Context, account *types.Account, folder types.Folder, eg *proxygw.Egress) (*types.DeleteStats, error) {
	refreshToken := s.freshRefreshToken(account)
	tok, err := s.broker.Exchange(ctx, account.ClientID, refreshToken, token.ProfileIMAP, eg)
	if err != nil {
		return nil, err
	}
	s.persistRotation(account.ID, tok)

	auth := imapmail.BuildXoauth2(account.Email, tok.AccessToken)
	n, err := s.imap.Clear(ctx, account.Email, auth, folder, eg)
	if err != nil {
		return nil, err
	}
	return &types.DeleteStats{Attempted: n, Deleted: n}, nil
}
