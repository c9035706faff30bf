package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// newPromptHandler logs rendered prompt sizes; contents stay out of the log.
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			size := 0
			if output != nil {
				for _, m := range output.Result {
					if m != nil {
						size += len(m.Content)
					}
				}
			}
			logx.Debug().Str("component", info.Type).Str("name", info.Name).Int("chars", size).Msg("prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("component", info.Type).Str("name", info.Name).Msg("prompt render error")
			return ctx
		},
	}
}
