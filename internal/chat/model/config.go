package model

// ================ Config ================

// ClientConfig is the recognised configuration surface of the chat client.
// ModelLabel is display only; ModelRequestName is what gets sent as "model".
// ContextSize is forwarded as max_tokens on every main completion request.
type ClientConfig struct {
	ModelLabel          string `envconfig:"MODEL_LABEL" json:"modelLabel"`
	ModelRequestName    string `envconfig:"MODEL_REQUEST_NAME" default:"chat" json:"modelRequestName"`
	APIKey              string `envconfig:"API_KEY" json:"apiKey"`
	Endpoint            string `envconfig:"SERVER_ENDPOINT" json:"endpoint"`
	ContextSize         int    `envconfig:"CONTEXT_SIZE" default:"1024" json:"contextSize"`
	AutoSummarizeTitles bool   `envconfig:"AUTO_SUMMARIZE_TITLES" json:"autoSummarizeTitles"`
}
