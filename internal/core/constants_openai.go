package core

// Chat completion endpoint path, appended to the configured base URL.
const ChatCompletionsPath = "/chat/completions"

// Content part type constants
const (
	ContentBlockTypeText     = "text"
	ContentBlockTypeImageURL = "image_url"
)
