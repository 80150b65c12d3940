package ingest

import "regexp"

// aiSignal matches normalized text that plausibly talks about AI or
// developer tooling. Items failing it never reach the analyzer.
var aiSignal = regexp.MustCompile(`\b(` +
	`ai|ml|llm|llms|gpt\w*|claude|gemini|llama|mistral|qwen|deepseek|grok|` +
	`openai|anthropic|hugging ?face|copilot|cursor|chatbot|genai|` +
	`agent|agents|agentic|rag|embedding|embeddings|vector|transformer|` +
	`neural|model|models|inference|fine ?tuning|finetune|prompt|prompts|` +
	`diffusion|multimodal|token|tokens|benchmark|dataset|` +
	`api|sdk|open ?source|framework|library|compiler|runtime` +
	`)\b`)

// PassesPrefilter reports whether normalized text carries at least one
// AI/dev-tooling signal keyword.
func PassesPrefilter(normalized string) bool {
	return aiSignal.MatchString(normalized)
}
