package convert

import (
	"encoding/base64"

	"aitex/internal/core"
)

// BuildRecognitionRequest builds the chat request that asks the model to
// transcribe the formula in png. The image travels as a data URI in the
// first user content part, followed by the fixed instruction text.
func BuildRecognitionRequest(config core.RecognitionConfig, png []byte) *core.ChatRequest {
	return &core.ChatRequest{
		Model: config.ModelName,
		Messages: []core.ChatMessage{
			systemMessage(config),
			{
				Role: core.RoleUser,
				Content: core.PartsContent(
					core.ImageURLPart(ImageDataURI(png)),
					core.TextPart(core.RecognitionInstruction),
				),
			},
		},
		MaxTokens:   core.RecognitionMaxTokens,
		Temperature: core.DefaultTemperature,
	}
}

// BuildProbeRequest builds the minimal request used to check that an
// endpoint accepts the configured credential and model.
func BuildProbeRequest(config core.RecognitionConfig) *core.ChatRequest {
	return &core.ChatRequest{
		Model: config.ModelName,
		Messages: []core.ChatMessage{
			systemMessage(config),
			{Role: core.RoleUser, Content: core.TextContent(core.ProbeMessage)},
		},
		MaxTokens:   core.ProbeMaxTokens,
		Temperature: core.DefaultTemperature,
	}
}

// ImageDataURI wraps png as a base64 data URI (standard alphabet, padded, unwrapped).
func ImageDataURI(png []byte) string {
	return core.PNGDataURIPrefix + base64.StdEncoding.EncodeToString(png)
}

func systemMessage(config core.RecognitionConfig) core.ChatMessage {
	return core.ChatMessage{Role: core.RoleSystem, Content: core.TextContent(config.SystemPrompt)}
}
