package prompts

type PromptName string

const (
	// Review sessions
	PromptReviewSessions PromptName = "review_sessions"
)
