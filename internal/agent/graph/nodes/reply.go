package nodes

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/salesagent/internal/core/error"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

type replyData struct {
	input          *model.TurnInput
	classification *model.TurnClassification
	merged         *model.MergedTurn
}

// NewReplyNode generates the persona reply. Any failure here fails the turn.
func NewReplyNode(d *Dependencies) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, updated *model.ChannelWorkflowState) (string, error) {
		var data replyData
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			if s.Input == nil || s.Classification == nil || s.Merged == nil {
				return fmt.Errorf("missing classification in state")
			}
			data = replyData{input: s.Input, classification: s.Classification, merged: s.Merged}
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}
		in := data.input

		var suggested string
		if r := data.classification.Rule; r != nil && r.Response != "" && r.Intent == data.merged.PrimaryIntent {
			suggested = r.Response
		}
		system, err := prompts.RenderReplySystem(ctx, prompts.ReplyContext{
			Persona:         in.Profile.Persona,
			Company:         in.Profile.Company,
			Classification:  data.classification.Intent,
			PrimaryIntent:   data.merged.PrimaryIntent,
			Data:            data.merged.Data,
			SuggestedAnswer: suggested,
		})
		if err != nil {
			return "", replyError(http.StatusInternalServerError, errx.SystemErrorMessage, fmt.Errorf("render reply prompt: %w", err))
		}
		if d.Oracle == nil {
			return "", replyError(http.StatusInternalServerError, errx.SystemErrorMessage, fmt.Errorf("no oracle configured"))
		}

		callCtx, cancel := withTimeout(ctx, d.Timeouts.Reply)
		defer cancel()
		resp, err := d.Oracle.Complete(callCtx, model.OracleRequest{
			Purpose: model.PurposeReply,
			System:  system,
			Prompt:  in.Message,
			History: in.History,
		})
		if err != nil {
			return "", errx.WrapOracle(errx.KindReply, fmt.Errorf("%w: %w", errx.ErrReplyFailed, err))
		}
		d.recordUsage(ctx, model.PurposeReply, resp)

		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return "", replyError(http.StatusBadGateway, errx.OracleErrorMessage, errx.ErrEmptyReply)
		}
		log := logx.Turn(in.ConversationID, in.TurnID)
		log.Debug().Str("phase", NodeReply).Int("chars", len(text)).Msg("reply ready")
		return text, nil
	})
}

// NewReplyPostHandler stores the reply in graph state.
func NewReplyPostHandler() func(context.Context, string, *model.TurnState) (string, error) {
	return func(ctx context.Context, out string, s *model.TurnState) (string, error) {
		s.Reply = out
		return out, nil
	}
}

func replyError(status int, message string, err error) error {
	return errx.New(fmt.Errorf("%w: %w", errx.ErrReplyFailed, err), status, message).WithKind(errx.KindReply)
}
