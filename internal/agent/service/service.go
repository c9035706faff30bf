package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/goals"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/salesagent/internal/core/error"
	"github.com/Chative-core-poc-v1/salesagent/internal/telemetry"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

const tracerName = "github.com/Chative-core-poc-v1/salesagent/internal/agent/service"

// MaxMessageLength bounds a single customer message.
const MaxMessageLength = 4000

// Config wires the conversation service.
type Config struct {
	Runner   graph.Runner
	Store    model.WorkflowStateStore
	Messages *conversations.MessagesManager
	Profile  *model.Profile
	Sink     model.TelemetrySink
	// WaitForTurn queues a second turn for a busy conversation instead of rejecting it.
	WaitForTurn bool
}

// ConversationService runs at most one turn per conversation at a time.
type ConversationService struct {
	runner   graph.Runner
	store    model.WorkflowStateStore
	messages *conversations.MessagesManager
	profile  *model.Profile
	sink     model.TelemetrySink
	wait     bool
	tracer   trace.Tracer

	locks    *keyedLocks
	catalogs sync.Map // catalog key -> *model.GoalCatalog
}

func New(cfg Config) (*ConversationService, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("turn runner is nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("workflow state store is nil")
	}
	if cfg.Profile == nil {
		return nil, fmt.Errorf("profile is nil")
	}
	sink := cfg.Sink
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &ConversationService{
		runner:   cfg.Runner,
		store:    cfg.Store,
		messages: cfg.Messages,
		profile:  cfg.Profile,
		sink:     telemetry.Safe(sink),
		wait:     cfg.WaitForTurn,
		tracer:   otel.Tracer(tracerName),
		locks:    newKeyedLocks(),
	}, nil
}

// HandleMessage processes one customer message end to end.
func (s *ConversationService) HandleMessage(ctx context.Context, conversationID, message string) (*model.TurnResult, error) {
	start := time.Now()
	conversationID = strings.TrimSpace(conversationID)
	message = strings.TrimSpace(message)
	if err := validate(conversationID, message); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "conversation.turn", trace.WithAttributes(
		attribute.String("conversation.id", conversationID),
	))
	defer span.End()

	release, err := s.lock(ctx, conversationID)
	if err != nil {
		return nil, s.fail(span, start, err)
	}
	defer release()

	turnID := uuid.NewString()
	span.SetAttributes(attribute.String("turn.id", turnID))
	log := logx.Turn(conversationID, turnID)
	s.sink.Emit(ctx, telemetry.EventPresenceActive, map[string]any{
		"conversation_id": conversationID,
		"turn_id":         turnID,
	})

	state, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return nil, s.fail(span, start, storeError(err))
	}
	history, err := s.messages.LoadHistory(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Msg("history unavailable; continuing without it")
		history = nil
	}

	result, err := s.runner.Invoke(ctx, &model.TurnInput{
		ConversationID: conversationID,
		TurnID:         turnID,
		Message:        message,
		History:        history,
		State:          state,
		Profile:        s.profileWithCatalog(),
		Updater:        s.store,
	})
	if err != nil {
		log.Error().Err(err).Msg("turn failed")
		return nil, s.fail(span, start, err)
	}

	if err := s.messages.SaveTurn(ctx, conversationID, message, result.Text()); err != nil {
		log.Warn().Err(err).Msg("failed to save transcript")
	}

	elapsed := time.Since(start)
	kind := string(result.FollowUp.Kind)
	telemetry.TurnsTotal.WithLabelValues("ok", kind).Inc()
	telemetry.TurnDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.String("turn.primary_intent", result.PrimaryIntent),
		attribute.String("turn.follow_up", kind),
		attribute.Float64("turn.cost_usd", result.CostUSD),
	)
	s.sink.Emit(ctx, telemetry.EventTurnCompleted, map[string]any{
		"conversation_id": conversationID,
		"turn_id":         turnID,
		"primary_intent":  result.PrimaryIntent,
		"follow_up":       kind,
		"degraded":        result.FollowUp.Degraded,
		"events":          result.Events,
		"input_tokens":    result.Usage.InputTokens,
		"output_tokens":   result.Usage.OutputTokens,
		"cost_usd":        result.CostUSD,
		"duration_ms":     elapsed.Milliseconds(),
	})
	log.Info().
		Str("primary_intent", result.PrimaryIntent).
		Str("follow_up", kind).
		Dur("duration", elapsed).
		Msg("turn completed")
	return result, nil
}

// State returns the persisted workflow state of a conversation.
func (s *ConversationService) State(ctx context.Context, conversationID string) (*model.ChannelWorkflowState, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, validationError("conversation id is required")
	}
	st, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return nil, storeError(err)
	}
	return st, nil
}

// Clear removes the workflow state and transcript of a conversation.
func (s *ConversationService) Clear(ctx context.Context, conversationID string) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return validationError("conversation id is required")
	}
	release, err := s.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer release()
	if err := s.store.Clear(ctx, conversationID); err != nil {
		return storeError(err)
	}
	if err := s.messages.Clear(ctx, conversationID); err != nil {
		return storeError(err)
	}
	logx.Info().Str("conversation_id", conversationID).Msg("conversation cleared")
	return nil
}

func (s *ConversationService) lock(ctx context.Context, conversationID string) (func(), error) {
	release, ok := s.locks.acquire(ctx, conversationID, s.wait)
	if ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errx.New(errx.ErrConversationBusy, http.StatusConflict, errx.BusyMessage)
}

// profileWithCatalog returns the profile with its catalog resolved once per
// company and persona pairing.
func (s *ConversationService) profileWithCatalog() *model.Profile {
	p := *s.profile
	if p.Catalog != nil {
		return &p
	}
	key := p.CatalogKey()
	if c, ok := s.catalogs.Load(key); ok {
		p.Catalog = c.(*model.GoalCatalog)
		return &p
	}
	var company, persona *model.GoalsConfig
	if p.Company != nil {
		company = p.Company.Goals
	}
	if p.Persona != nil {
		persona = p.Persona.Goals
	}
	c, _ := s.catalogs.LoadOrStore(key, goals.Resolve(company, persona))
	p.Catalog = c.(*model.GoalCatalog)
	return &p
}

func (s *ConversationService) fail(span trace.Span, start time.Time, err error) error {
	outcome := "error"
	if errors.Is(err, errx.ErrConversationBusy) {
		outcome = "busy"
	}
	telemetry.TurnsTotal.WithLabelValues(outcome, string(model.FollowUpNone)).Inc()
	telemetry.TurnDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	return err
}

func validate(conversationID, message string) error {
	switch {
	case conversationID == "":
		return validationError("conversation id is required")
	case message == "":
		return validationError("message is required")
	case len(message) > MaxMessageLength:
		return validationError(fmt.Sprintf("message exceeds %d characters", MaxMessageLength))
	}
	return nil
}

func validationError(msg string) error {
	return errx.New(errors.New(msg), http.StatusBadRequest, msg).WithKind(errx.KindValidation)
}

func storeError(err error) error {
	var ae *errx.AppError
	if errors.As(err, &ae) {
		return err
	}
	return errx.New(fmt.Errorf("%w: %w", errx.ErrStateStore, err), http.StatusBadGateway, errx.StateStoreErrorMessage).
		WithKind(errx.KindStateStore)
}
