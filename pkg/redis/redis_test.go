package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient() (*Client, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return &Client{Client: db}, mock
}

func TestClient_SetWithExpiration(t *testing.T) {
	client, mock := newMockClient()
	mock.ExpectSet("idempotency:abc", "payload", time.Hour).SetVal("OK")

	err := client.SetWithExpiration(context.Background(), "idempotency:abc", "payload", time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_GetString(t *testing.T) {
	client, mock := newMockClient()
	mock.ExpectGet("idempotency:abc").SetVal("payload")

	value, err := client.GetString(context.Background(), "idempotency:abc")
	require.NoError(t, err)
	assert.Equal(t, "payload", value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_GetString_Missing(t *testing.T) {
	client, mock := newMockClient()
	mock.ExpectGet("idempotency:missing").RedisNil()

	_, err := client.GetString(context.Background(), "idempotency:missing")
	assert.ErrorIs(t, err, ErrNil)
}

func TestClient_SetIfAbsent(t *testing.T) {
	client, mock := newMockClient()
	mock.ExpectSetNX("lock:abc", "1", time.Minute).SetVal(true)
	mock.ExpectSetNX("lock:abc", "1", time.Minute).SetVal(false)

	ok, err := client.SetIfAbsent(context.Background(), "lock:abc", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetIfAbsent(context.Background(), "lock:abc", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Delete(t *testing.T) {
	client, mock := newMockClient()
	mock.ExpectDel("idempotency:abc").SetVal(1)

	require.NoError(t, client.Delete(context.Background(), "idempotency:abc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
