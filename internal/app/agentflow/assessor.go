package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// AssessorAgent reads the transcript and writes evaluator notes.
type AssessorAgent struct {
	llm domain.LLMClient
}

func NewAssessorAgent(llm domain.LLMClient) *AssessorAgent {
	return &AssessorAgent{llm: llm}
}

func (a *AssessorAgent) Name() string {
	return "assessor"
}

func (a *AssessorAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	prompt := fmt.Sprintf(
		"You are PracterView's Assessor. Review the transcript of this %s interview.\n"+
			"List the candidate's strengths, gaps and notable answers as short bullet points.\n"+
			"Quote the candidate where it helps. Do not address the candidate.",
		in.ConvCtx.InterviewType,
	)
	if focus := strings.TrimSpace(in.Text); focus != "" {
		prompt += "\n\nAlso pay attention to: " + focus
	}

	reply, err := a.llm.GenerateReply(ctx, prompt, in.ConvCtx)
	if err != nil {
		return AgentOutput{}, err
	}

	return AgentOutput{
		Reply:          reply,
		UpdatedContext: in.ConvCtx,
	}, nil
}
