package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

func TestAccountStore_GetByID_NotFound(t *testing.T) {
	s := NewAccountStore(openTestDB(t), testLogger())

	_, err := s.GetByID(42)
	var nf *types.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "account", nf.Entity)
	assert.Equal(t, int64(42), nf.ID)
}

func TestAccountStore_CreateAndGet(t *testing.T) {
	s := NewAccountStore(openTestDB(t), testLogger())

	created, err := s.Create("a@outlook.com", "pw", "client-1", "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "a@outlook.com", created.Email)
	assert.Equal(t, types.StatusActive, created.Status)
	assert.Nil(t, created.LastSyncedAt)
	assert.Nil(t, created.TokenRefreshedAt)

	got, err := s.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", got.RefreshToken)
}

func TestAccountStore_ListPaginationAndSearch(t *testing.T) {
	s := NewAccountStore(openTestDB(t), testLogger())
	for _, email := range []string{"alice@outlook.com", "bob@outlook.com", "carol@hotmail.com"} {
		_, err := s.Create(email, "pw", "c", "rt")
		require.NoError(t, err)
	}

	accounts, total, err := s.List(1, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, accounts, 2)
	// Newest first.
	assert.Equal(t, "carol@hotmail.com", accounts[0].Email)

	accounts, total, err = s.List(1, 10, "outlook")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, accounts, 2)
}

func TestAccountStore_UpdateAppliesOnlySetFields(t *testing.T) {
	s := NewAccountStore(openTestDB(t), testLogger())
	created, err := s.Create("a@outlook.com", "pw", "client-1", "rt-1")
	require.NoError(t, err)

	remark := "vip"
	updated, err := s.Update(created.ID, AccountUpdate{Remark: &remark})
	require.NoError(t, err)
	assert.Equal(t, "vip", updated.Remark)
	assert.Equal(t, "rt-1", updated.RefreshToken)
	assert.Equal(t, "a@outlook.com", updated.Email)
}

func TestAccountStore_UpdateTokenRefresh_RotatesToken(t *testing.T) {
	s := NewAccountStore(openTestDB(t), testLogger())
	created, err := s.Create("a@outlook.com", "pw", "client-1", "rt-old")
	require.NoError(t, err)
	require.NoError(t, s.MarkError(created.ID))

	require.NoError(t, s.UpdateTokenRefresh(created.ID, "rt-new"))

	got, err := s.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "rt-new", got.RefreshToken)
	assert.Equal(t, types.StatusActive, got.Status)
	require.NotNil(t, got.TokenRefreshedAt)
}

func TestAccountStore_UpdateTokenRefresh_EmptyKeepsStoredToken(t *testing.T) {
	s := NewAccountStore(openTestDB(t), testLogger())
	created, err := s.Create("a@outlook.com", "pw", "client-1", "rt-old")
	require.NoError(t, err)

	require.NoError(t, s.UpdateTokenRefresh(created.ID, ""))

	got, err := s.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "rt-old", got.RefreshToken)
	require.NotNil(t, got.TokenRefreshedAt)
}

func TestAccountStore_DeleteCascadesCache(t *testing.T) {
	db := openTestDB(t)
	s := NewAccountStore(db, testLogger())
	cache := NewMailCache(db, testLogger())

	created, err := s.Create("a@outlook.com", "pw", "c", "rt")
	require.NoError(t, err)
	require.NoError(t, cache.Upsert(created.ID, types.FolderInbox, []types.MailSummary{
		{MailID: "m1", Subject: "hi"},
	}))

	deleted, err := s.Delete(created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	n, err := cache.CountForAccount(created.ID, types.FolderInbox)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAccountStore_BatchDelete(t *testing.T) {
	s := NewAccountStore(openTestDB(t), testLogger())
	var ids []int64
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		created, err := s.Create(email, "pw", "c", "rt")
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	n, err := s.BatchDelete(ids[:2])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, total, err := s.List(1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestAccountStore_MarkError(t *testing.T) {
	s := NewAccountStore(openTestDB(t), testLogger())
	created, err := s.Create("a@outlook.com", "pw", "c", "rt")
	require.NoError(t, err)

	require.NoError(t, s.MarkError(created.ID))
	got, err := s.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, got.Status)
}
