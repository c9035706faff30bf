package prompts

import (
	"context"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

// RenderFollowUp renders the instruction prompt for a follow-up message.
func RenderFollowUp(ctx context.Context, persona *model.Persona, company *model.Company, reply, instruction string, examples []string) (string, error) {
	name, tone := "the assistant", ""
	if persona != nil {
		name, tone = persona.Name, persona.Tone
	}
	business := "our business"
	if company != nil && company.Name != "" {
		business = company.Name
	}
	return render(ctx, "follow-up", followUpPrompt, map[string]any{
		"PersonaName":  name,
		"BusinessName": business,
		"Tone":         tone,
		"Reply":        reply,
		"Instruction":  instruction,
		"Examples":     examples,
	})
}
