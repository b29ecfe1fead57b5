package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

func TestProxyStore_CreateDefaultsToUntested(t *testing.T) {
	s := NewProxyStore(openTestDB(t), testLogger())

	created, err := s.Create(&types.Proxy{Name: "p1", Type: "socks5", Host: "s.local", Port: 1080})
	require.NoError(t, err)
	assert.Equal(t, "untested", created.Status)
	assert.False(t, created.IsDefault)
	assert.Nil(t, created.LastTestedAt)
}

func TestProxyStore_GetDefault_NoneFlagged(t *testing.T) {
	s := NewProxyStore(openTestDB(t), testLogger())
	_, err := s.Create(&types.Proxy{Type: "http", Host: "h.local", Port: 3128})
	require.NoError(t, err)

	p, err := s.GetDefault()
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProxyStore_SetDefault_ClearsOthers(t *testing.T) {
	s := NewProxyStore(openTestDB(t), testLogger())
	a, err := s.Create(&types.Proxy{Type: "http", Host: "a.local", Port: 3128, IsDefault: true})
	require.NoError(t, err)
	b, err := s.Create(&types.Proxy{Type: "socks5", Host: "b.local", Port: 1080})
	require.NoError(t, err)

	updated, err := s.SetDefault(b.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	def, err := s.GetDefault()
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, b.ID, def.ID)

	prev, err := s.GetByID(a.ID)
	require.NoError(t, err)
	assert.False(t, prev.IsDefault)
}

func TestProxyStore_UpdateTestResult(t *testing.T) {
	s := NewProxyStore(openTestDB(t), testLogger())
	created, err := s.Create(&types.Proxy{Type: "http", Host: "h.local", Port: 3128})
	require.NoError(t, err)

	require.NoError(t, s.UpdateTestResult(created.ID, "203.0.113.7", "active"))

	got, err := s.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, "203.0.113.7", got.LastTestIP)
	require.NotNil(t, got.LastTestedAt)
}

func TestProxyStore_UpdatePartialFields(t *testing.T) {
	s := NewProxyStore(openTestDB(t), testLogger())
	created, err := s.Create(&types.Proxy{Type: "http", Host: "h.local", Port: 3128, Username: "u"})
	require.NoError(t, err)

	port := 8080
	updated, err := s.Update(created.ID, ProxyUpdate{Port: &port})
	require.NoError(t, err)
	assert.Equal(t, 8080, updated.Port)
	assert.Equal(t, "h.local", updated.Host)
	assert.Equal(t, "u", updated.Username)
}

func TestProxyStore_Delete(t *testing.T) {
	s := NewProxyStore(openTestDB(t), testLogger())
	created, err := s.Create(&types.Proxy{Type: "http", Host: "h.local", Port: 3128})
	require.NoError(t, err)

	deleted, err := s.Delete(created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	var nf *types.NotFoundError
	_, err = s.GetByID(created.ID)
	require.ErrorAs(t, err, &nf)
}
