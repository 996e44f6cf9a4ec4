package prompts

type PromptName string

const (
	PromptReasoning  PromptName = "reasoning"
	PromptCode       PromptName = "code"
	PromptTests      PromptName = "tests"
	PromptValidation PromptName = "validation"
)

// Names lists every stage prompt in pipeline order.
func Names() []PromptName {
	return []PromptName{PromptReasoning, PromptCode, PromptTests, PromptValidation}
}
