package agentflow

import (
	"context"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// Agent is one step of the report flow.
type Agent interface {
	Name() string
	Run(ctx context.Context, in AgentInput) (AgentOutput, error)
}

type AgentInput struct {
	// Text is an optional focus for the first agent and the previous reply after that.
	Text    string
	ConvCtx domain.ConversationContext
	// Notes holds the replies of earlier agents, keyed by agent name.
	Notes map[string]string
}

type AgentOutput struct {
	Reply          string
	UpdatedContext domain.ConversationContext
	Artifacts      map[string]string
}
