package errx

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to the unified error type with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage).WithKind(KindStateStore)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage).WithKind(KindStateStore)
}

// WrapOracle maps a language model failure to the unified error type for the given phase.
func WrapOracle(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(err, http.StatusGatewayTimeout, OracleTimeoutMessage).WithKind(kind)
	}
	return New(err, http.StatusBadGateway, OracleErrorMessage).WithKind(kind)
}
