// Package latex post-processes model replies into bare LaTeX.
package latex

import "strings"

const (
	openDelimiter   = "$"
	closeDelimiters = "$}"
	blankLine       = "\n\n"
	singleLineBreak = "\n"
)

// Sanitize strips prose the model wrapped around a formula.
//
// Everything before the first "$" is dropped, as is everything after the last
// "$" or "}". Runs of blank lines collapse to a single newline and the result
// is trimmed. Input without delimiters passes through apart from the newline
// and whitespace cleanup. Brace balance is not checked.
func Sanitize(raw string) string {
	result := raw

	if start := strings.Index(result, openDelimiter); start > 0 {
		result = result[start:]
	}

	if end := strings.LastIndexAny(result, closeDelimiters); end >= 0 {
		result = result[:end+1]
	}

	for strings.Contains(result, blankLine) {
		result = strings.ReplaceAll(result, blankLine, singleLineBreak)
	}

	return strings.TrimSpace(result)
}
