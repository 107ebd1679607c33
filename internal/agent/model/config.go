package model

// ================ Config ================
type ConversationConfig struct {
	TTL  string `envconfig:"CONVERSATION_TTL" default:"15m"`
	Chat struct {
		MaxTurns int `envconfig:"CONVERSATION_CHAT_MAX_TURNS" default:"10"`
	}
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"3"`
	}
}

// AnswerModelConfig configures the streaming analyst model that produces
// reasoning, answer text and tool calls.
type AnswerModelConfig struct {
	Model       string  `envconfig:"ANSWER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ANSWER_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"ANSWER_TEMPERATURE" default:"0.2"`
}

// SynthesisModelConfig configures the non-streaming model used for query
// generation, explanations and chart-config synthesis.
type SynthesisModelConfig struct {
	Model       string  `envconfig:"SYNTHESIS_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"SYNTHESIS_MAX_TOKENS" default:"1000"`
	Temperature float32 `envconfig:"SYNTHESIS_TEMPERATURE" default:"0.1"`
}

// PromptConfig carries the facts about the analytical table that the prompt
// templates are rendered with.
type PromptConfig struct {
	TableName string `envconfig:"PROMPT_TABLE_NAME" default:"unicorns"`
}

// QueryConfig bounds statement execution at the gateway.
type QueryConfig struct {
	TimeoutSeconds int `envconfig:"QUERY_TIMEOUT_SECONDS" default:"30"`
}
