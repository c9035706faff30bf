package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))

	err := WrapRedis(redis.Nil)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Equal(t, RedisNotFoundMessage, MessageOf(err))
	assert.True(t, IsKind(err, KindStateStore))
	assert.ErrorIs(t, err, redis.Nil)

	err = WrapRedis(errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}

func TestWrapOracle(t *testing.T) {
	assert.NoError(t, WrapOracle(KindReply, nil))

	err := WrapOracle(KindReply, fmt.Errorf("reply: %w", context.DeadlineExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, StatusOf(err))
	assert.Equal(t, OracleTimeoutMessage, MessageOf(err))
	assert.True(t, IsKind(err, KindReply))
	assert.False(t, IsKind(err, KindClassification))

	err = WrapOracle(KindFollowUp, errors.New("boom"))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}

func TestAppErrorChain(t *testing.T) {
	inner := New(errors.New("redis down"), http.StatusBadGateway, RedisErrorMessage).WithKind(KindStateStore)
	outer := New(fmt.Errorf("persist: %w", inner), http.StatusBadGateway, "turn failed").WithKind(KindReply)

	assert.True(t, IsKind(outer, KindStateStore))
	assert.True(t, IsKind(outer, KindReply))
	assert.Equal(t, "turn failed: persist: redis operation failed: redis down", outer.Error())
	assert.Equal(t, "plain", New(nil, 0, "plain").Error())

	plain := errors.New("x")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(plain))
	assert.Equal(t, SystemErrorMessage, MessageOf(plain))
	assert.False(t, IsKind(plain, KindReply))
	assert.False(t, IsKind(nil, KindReply))
}
