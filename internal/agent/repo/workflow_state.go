package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/salesagent/internal/core/error"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// maxTxRetries bounds optimistic retries when a concurrent writer touches the key.
const maxTxRetries = 5

// RedisWorkflowStateStore keeps one JSON document per conversation and
// applies patches inside WATCH/MULTI so read-merge-write is atomic.
type RedisWorkflowStateStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

// NewRedisWorkflowStateStore builds the store; ttl 0 keeps state until explicitly cleared.
func NewRedisWorkflowStateStore(rdb redis.UniversalClient, ttl time.Duration) *RedisWorkflowStateStore {
	return &RedisWorkflowStateStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *RedisWorkflowStateStore) stateKey(conversationID string) string {
	return fmt.Sprintf("salesagent:conversation:%s:state", conversationID)
}

func (s *RedisWorkflowStateStore) read(ctx context.Context, c redis.Cmdable, conversationID string) (*model.ChannelWorkflowState, error) {
	raw, err := c.Get(ctx, s.stateKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.NewWorkflowState(conversationID), nil
	}
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	var st model.ChannelWorkflowState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, errx.New(fmt.Errorf("decode workflow state: %w", err), http.StatusInternalServerError, errx.SystemErrorMessage).WithKind(errx.KindStateStore)
	}
	if st.ConversationID == "" {
		st.ConversationID = conversationID
	}
	return st.Normalize(), nil
}

func (s *RedisWorkflowStateStore) Load(ctx context.Context, conversationID string) (*model.ChannelWorkflowState, error) {
	st, err := s.read(ctx, s.rdb, conversationID)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to load workflow state")
		return nil, err
	}
	return st, nil
}

func (s *RedisWorkflowStateStore) Save(ctx context.Context, conversationID string, state *model.ChannelWorkflowState) error {
	if state == nil {
		return fmt.Errorf("workflow state is nil")
	}
	st := state.Clone()
	st.ConversationID = conversationID
	st.LastUpdated = s.now().UTC()
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal workflow state: %w", err)
	}
	if err := s.rdb.Set(ctx, s.stateKey(conversationID), b, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to save workflow state")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisWorkflowStateStore) Update(ctx context.Context, conversationID string, patch *model.StatePatch) (*model.ChannelWorkflowState, error) {
	key := s.stateKey(conversationID)
	var out *model.ChannelWorkflowState

	txf := func(tx *redis.Tx) error {
		st, err := s.read(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		patch.Apply(st, s.now())
		b, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal workflow state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, s.ttl)
			return nil
		})
		if err == nil {
			out = st
		}
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logx.Warn().Str("conversation_id", conversationID).Int("attempt", attempt+1).Msg("workflow state changed during update, retrying")
			continue
		}
		var ae *errx.AppError
		if errors.As(err, &ae) {
			return nil, err
		}
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to update workflow state")
		return nil, errx.WrapRedis(err)
	}
	return nil, errx.WrapRedis(fmt.Errorf("update %s: %w", key, redis.TxFailedErr))
}

func (s *RedisWorkflowStateStore) Clear(ctx context.Context, conversationID string) error {
	if err := s.rdb.Del(ctx, s.stateKey(conversationID)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.WorkflowStateStore = (*RedisWorkflowStateStore)(nil)
