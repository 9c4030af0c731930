package core

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// ChatRequest is the OpenAI-compatible chat completion request sent upstream.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// ChatMessage is one role/content entry of a ChatRequest.
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// ImageURL holds the url of an image_url content part.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is a single element of a multi-part message content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentBlockTypeText, Text: text}
}

// ImageURLPart builds an image_url content part.
func ImageURLPart(url string) ContentPart {
	return ContentPart{Type: ContentBlockTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// MessageContent is either plain text or a sequence of parts.
// It is serialized as a JSON string or a JSON array respectively.
type MessageContent struct {
	text  string
	parts []ContentPart
	multi bool
}

// TextContent returns a plain-text message content.
func TextContent(text string) MessageContent {
	return MessageContent{text: text}
}

// PartsContent returns a multi-part message content.
func PartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{parts: parts, multi: true}
}

// IsParts reports whether the content is the multi-part variant.
func (c MessageContent) IsParts() bool {
	return c.multi
}

// Text returns the plain-text variant, or "" for multi-part content.
func (c MessageContent) Text() string {
	return c.text
}

// Parts returns a copy of the multi-part variant, or nil for plain text.
func (c MessageContent) Parts() []ContentPart {
	if !c.multi {
		return nil
	}
	out := make([]ContentPart, len(c.parts))
	copy(out, c.parts)
	return out
}

// MarshalJSON encodes the content according to its variant.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.multi {
		parts := c.parts
		if parts == nil {
			parts = []ContentPart{}
		}
		return sonic.Marshal(parts)
	}
	return sonic.Marshal(c.text)
}

// UnmarshalJSON accepts both the string and the array form.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var str string
	if err := sonic.Unmarshal(data, &str); err == nil {
		*c = TextContent(str)
		return nil
	}

	var parts []ContentPart
	if err := sonic.Unmarshal(data, &parts); err == nil {
		*c = PartsContent(parts...)
		return nil
	}

	return fmt.Errorf("invalid message content format")
}
