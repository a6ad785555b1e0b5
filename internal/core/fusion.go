package core

const (
	keywordFusionWeight = 0.3
	llmFusionWeight     = 0.7
)

// CombineConfidence fuses the keyword and LLM confidence signals with
// fixed 30/70 weights. Both inputs are already clamped to [0,1] by
// their producers, so the result is bounded to [0,1] without further
// clamping.
func CombineConfidence(keywordConfidence, llmConfidence float64) float64 {
	return keywordConfidence*keywordFusionWeight + llmConfidence*llmFusionWeight
}
