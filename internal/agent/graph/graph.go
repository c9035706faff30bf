package graph

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/extract"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/followup"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/salesagent/internal/core/error"
	"github.com/Chative-core-poc-v1/salesagent/internal/telemetry"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// Runner executes one turn through the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, in *model.TurnInput) (*model.TurnResult, error)
}

// Config holds everything needed to compose the turn graph.
type Config struct {
	Oracle       model.Oracle
	Sink         model.TelemetrySink
	Timeouts     model.TimeoutConfig
	Conversation model.ConversationConfig
}

// GraphBuilder handles the construction of the turn graph.
type GraphBuilder struct {
	deps  *nodes.Dependencies
	graph *compose.Graph[*model.TurnInput, *model.TurnResult]
}

type graphRunner struct {
	runnable compose.Runnable[*model.TurnInput, *model.TurnResult]
}

func (r *graphRunner) Invoke(ctx context.Context, in *model.TurnInput) (*model.TurnResult, error) {
	if err := prepare(in); err != nil {
		return nil, err
	}
	return r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
}

// prepare validates the input and normalizes the working copy of the state.
func prepare(in *model.TurnInput) error {
	invalid := func(msg string) error {
		return errx.New(fmt.Errorf("invalid turn input: %s", msg), http.StatusBadRequest, msg).WithKind(errx.KindValidation)
	}
	switch {
	case in == nil:
		return invalid("turn input is nil")
	case strings.TrimSpace(in.ConversationID) == "":
		return invalid("conversation id is required")
	case strings.TrimSpace(in.Message) == "":
		return invalid("message is required")
	case in.Updater == nil:
		return invalid("state updater is required")
	}
	if in.Profile == nil {
		in.Profile = &model.Profile{}
	}
	if in.State == nil {
		in.State = model.NewWorkflowState(in.ConversationID)
	} else {
		in.State = in.State.Clone()
	}
	return nil
}

// BuildTurnGraph builds the dependencies, compiles the graph and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle is nil")
	}
	sink := cfg.Sink
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	runnable, err := BuildGraph(ctx, &nodes.Dependencies{
		Oracle:          cfg.Oracle,
		Sink:            telemetry.Safe(sink),
		Patterns:        extract.NewPatternExtractor(),
		FollowUps:       followup.NewSelector(cfg.Oracle, cfg.Timeouts.FollowUp),
		Timeouts:        cfg.Timeouts,
		HistoryMessages: cfg.Conversation.History.MaxTurns * 2,
	})
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled turn graph.
func BuildGraph(ctx context.Context, deps *nodes.Dependencies) (compose.Runnable[*model.TurnInput, *model.TurnResult], error) {
	if deps == nil {
		return nil, fmt.Errorf("graph dependencies are nil")
	}
	if deps.Oracle == nil || deps.FollowUps == nil || deps.Patterns == nil {
		return nil, fmt.Errorf("graph dependencies are not properly initialized")
	}

	builder := &GraphBuilder{
		deps: deps,
		graph: compose.NewGraph[*model.TurnInput, *model.TurnResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds the five phases to the graph.
func (b *GraphBuilder) addNodes() error {
	steps := []struct {
		key string
		add func() error
	}{
		{nodes.NodeClassify, func() error {
			return b.graph.AddLambdaNode(nodes.NodeClassify, nodes.NewClassifyNode(b.deps),
				compose.WithStatePreHandler(nodes.NewInputPreHandler()),
				compose.WithStatePostHandler(nodes.NewClassifyPostHandler()))
		}},
		{nodes.NodeMerge, func() error {
			return b.graph.AddLambdaNode(nodes.NodeMerge, nodes.NewMergeNode(),
				compose.WithStatePostHandler(nodes.NewMergePostHandler()))
		}},
		{nodes.NodePersist, func() error {
			return b.graph.AddLambdaNode(nodes.NodePersist, nodes.NewPersistNode(b.deps),
				compose.WithStatePostHandler(nodes.NewPersistPostHandler()))
		}},
		{nodes.NodeReply, func() error {
			return b.graph.AddLambdaNode(nodes.NodeReply, nodes.NewReplyNode(b.deps),
				compose.WithStatePostHandler(nodes.NewReplyPostHandler()))
		}},
		{nodes.NodeFollowUp, func() error {
			return b.graph.AddLambdaNode(nodes.NodeFollowUp, nodes.NewFollowUpNode(b.deps))
		}},
	}
	for _, s := range steps {
		if err := s.add(); err != nil {
			logx.Error().Err(err).Str("node", s.key).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", s.key, err)
		}
	}
	return nil
}

// addEdges chains the phases strictly in order.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeClassify},
		{nodes.NodeClassify, nodes.NodeMerge},
		{nodes.NodeMerge, nodes.NodePersist},
		{nodes.NodePersist, nodes.NodeReply},
		{nodes.NodeReply, nodes.NodeFollowUp},
		{nodes.NodeFollowUp, compose.END},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.TurnInput, *model.TurnResult], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(10))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
