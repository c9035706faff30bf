package repo

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/salesagent/internal/core/error"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisWorkflowState_LoadDefaults(t *testing.T) {
	_, rdb := setupRedis(t)
	s := NewRedisWorkflowStateStore(rdb, 0)

	st, err := s.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", st.ConversationID)
	assert.Empty(t, st.CapturedData)
	assert.NotNil(t, st.ActiveGoals)
	assert.Zero(t, st.MessageCount)
}

func TestRedisWorkflowState_UpdateMergesFields(t *testing.T) {
	mr, rdb := setupRedis(t)
	s := NewRedisWorkflowStateStore(rdb, 0)
	ctx := context.Background()

	_, err := s.Update(ctx, "c1", &model.StatePatch{
		CapturedData:          map[string]any{"firstName": model.FieldValue{Value: "David", Confidence: 0.9, Source: model.SourceLLM}},
		ActivateGoals:         []string{"collect_contact_info"},
		IncrementMessageCount: true,
	})
	require.NoError(t, err)

	st, err := s.Update(ctx, "c1", &model.StatePatch{
		CapturedData:          map[string]any{"email": "david@x.com", "phone": nil},
		CompleteGoals:         []string{"collect_contact_info"},
		ActivateGoals:         []string{"schedule_visit", "collect_contact_info"},
		IncrementMessageCount: true,
		GoalAttempts:          map[string]int{"schedule_visit": 1},
		EmitEvents:            []string{"lead_captured", "lead_captured"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, st.MessageCount)
	assert.Equal(t, []string{"schedule_visit"}, st.ActiveGoals)
	assert.Equal(t, []string{"collect_contact_info"}, st.CompletedGoals)
	assert.Equal(t, []string{"lead_captured"}, st.EmittedEvents)
	assert.Equal(t, 1, st.GoalAttempts["schedule_visit"])
	assert.NotContains(t, st.CapturedData, "phone")
	assert.False(t, st.LastUpdated.IsZero())

	loaded, err := s.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "David", model.Lookup(loaded.CapturedData, "firstName"))
	assert.Equal(t, "david@x.com", model.Lookup(loaded.CapturedData, "email"))
	assert.Equal(t, time.Duration(0), mr.TTL("salesagent:conversation:c1:state"))
}

func TestRedisWorkflowState_SaveAndClear(t *testing.T) {
	mr, rdb := setupRedis(t)
	s := NewRedisWorkflowStateStore(rdb, time.Hour)
	ctx := context.Background()

	st := model.NewWorkflowState("ignored")
	st.MessageCount = 4
	require.NoError(t, s.Save(ctx, "c2", st))
	assert.Equal(t, time.Hour, mr.TTL("salesagent:conversation:c2:state"))

	loaded, err := s.Load(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "c2", loaded.ConversationID)
	assert.Equal(t, 4, loaded.MessageCount)

	require.NoError(t, s.Clear(ctx, "c2"))
	loaded, err = s.Load(ctx, "c2")
	require.NoError(t, err)
	assert.Zero(t, loaded.MessageCount)
	assert.Error(t, s.Save(ctx, "c2", nil))
}

func TestRedisWorkflowState_Errors(t *testing.T) {
	mr, rdb := setupRedis(t)
	s := NewRedisWorkflowStateStore(rdb, 0)
	ctx := context.Background()

	require.NoError(t, mr.Set("salesagent:conversation:bad:state", "{not json"))
	_, err := s.Load(ctx, "bad")
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindStateStore))

	mr.Close()
	_, err = s.Update(ctx, "c1", &model.StatePatch{IncrementMessageCount: true})
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindStateStore))
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestRedisConversationRepository(t *testing.T) {
	mr, rdb := setupRedis(t)
	r := NewRedisConversationRepository(rdb, time.Hour)
	r.maxMessages = 3
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("one")))
	require.NoError(t, r.AddMessages(ctx, "c1", schema.AssistantMessage("two", nil), nil, schema.UserMessage("three"), schema.AssistantMessage("four", nil)))
	require.NoError(t, r.AddMessages(ctx, "c1"))

	n, err := r.GetMessageCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, time.Hour, mr.TTL("salesagent:conversation:c1:messages"))

	h, err := r.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 3)
	assert.Equal(t, "two", h.Messages[0].Content)
	assert.Equal(t, schema.Assistant, h.Messages[2].Role)

	require.NoError(t, r.ClearHistory(ctx, "c1"))
	h, err = r.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, h.Messages)
}

func TestMemoryWorkflowStateStore(t *testing.T) {
	m := NewMemoryWorkflowStateStore()
	ctx := context.Background()

	st, err := m.Update(ctx, "c1", &model.StatePatch{CapturedData: map[string]any{"email": "a@b.co"}, IncrementMessageCount: true})
	require.NoError(t, err)
	st.CapturedData["email"] = "mutated"

	loaded, err := m.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", model.Lookup(loaded.CapturedData, "email"))
	assert.Equal(t, 1, loaded.MessageCount)

	require.NoError(t, m.Clear(ctx, "c1"))
	loaded, err = m.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, loaded.MessageCount)
}
