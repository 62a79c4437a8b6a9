package agentflow

import (
	"context"
	"fmt"
	"time"

	"github.com/PabloGalante/practerview-agent/internal/app/tools"
	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

// Orchestrator is responsible for running multiple agents in sequence.
type Orchestrator struct {
	agents []Agent
}

// Result is the last agent's reply plus everything the flow produced on the way.
type Result struct {
	Reply     string
	Notes     map[string]string
	Artifacts map[string]string
}

// NewReportOrchestrator constructs a flow with Assessor -> Reporter.
func NewReportOrchestrator(llm domain.LLMClient, reportTool tools.Tool) *Orchestrator {
	return NewOrchestrator(
		NewAssessorAgent(llm),
		NewReporterAgent(llm, reportTool),
	)
}

func NewOrchestrator(agents ...Agent) *Orchestrator {
	return &Orchestrator{agents: agents}
}

// Run executes the chain of agents sequentially.
func (o *Orchestrator) Run(
	ctx context.Context,
	text string,
	convCtx domain.ConversationContext,
) (*Result, error) {
	if len(o.agents) == 0 {
		return nil, fmt.Errorf("no agents configured in orchestrator")
	}

	log := observability.LoggerFromContext(ctx).With(
		"interview_type", convCtx.InterviewType,
		"items", len(convCtx.History),
	)
	log.Info("orchestrator started", "agents_count", len(o.agents))

	res := &Result{
		Notes:     make(map[string]string, len(o.agents)),
		Artifacts: make(map[string]string),
	}
	in := AgentInput{
		Text:    text,
		ConvCtx: convCtx,
		Notes:   res.Notes,
	}

	for _, ag := range o.agents {
		start := time.Now()
		log.Info("agent run start", "agent", ag.Name())

		out, err := ag.Run(ctx, in)
		if err != nil {
			log.Error("agent failed",
				"agent", ag.Name(),
				"error", err)
			return nil, fmt.Errorf("agent %s failed: %w", ag.Name(), err)
		}

		log.Info("agent run end", "agent", ag.Name(), "elapsed_ms", time.Since(start).Milliseconds())

		res.Notes[ag.Name()] = out.Reply
		for k, v := range out.Artifacts {
			res.Artifacts[k] = v
		}
		res.Reply = out.Reply

		// The output of an agent is the input for the next agent
		in.Text = out.Reply
		in.ConvCtx = out.UpdatedContext
	}

	log.Info("orchestrator end")
	return res, nil
}
