package llm

import (
	"strings"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

const reportSystemPrompt = `
You are part of PracterView, an AI interview practice service.
You review finished interviews and help candidates improve.

General style guidelines:
- Answer in the SAME LANGUAGE the candidate used in the interview.
- Be specific: refer to what the candidate actually said.
- Be honest but constructive. No generic advice.
- Keep it short: plain text, short paragraphs or bullet points.

Boundaries:
- Judge only what is in the transcript. Never invent answers the candidate did not give.
- If the transcript is too short to judge, say so.
`

// Prompt represents the system prompt + the content to send as "user".
type Prompt struct {
	System string
	User   string
}

// BuildPrompt builds the system prompt and the user content
// (transcript + task) from the conversation context.
func BuildPrompt(task string, ctx domain.ConversationContext) Prompt {
	system := reportSystemPrompt + "\n" + interviewFocus(ctx.InterviewType)

	var user strings.Builder
	user.WriteString("Interview transcript:\n")
	if len(ctx.History) == 0 {
		user.WriteString("(empty)\n")
	}
	for _, item := range ctx.History {
		speaker := "Candidate"
		if item.Author == domain.RoleAgent {
			speaker = "Interviewer"
		}
		user.WriteString(speaker + ": " + item.Text + "\n")
	}
	user.WriteString("\nTask:\n")
	user.WriteString(task)

	return Prompt{
		System: system,
		User:   user.String(),
	}
}

func interviewFocus(t domain.InterviewType) string {
	if t == "" {
		t = domain.DefaultInterviewType
	}
	return "Interview type: " + string(t) + "\n"
}
