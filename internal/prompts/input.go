package prompts

// Input carries every field a stage prompt may reference.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// Stage 1
	Context      string
	ContextQuery string
	// Stage 2
	Reasoning string
	Code      string
	// Stage 3
	Tests string
}
