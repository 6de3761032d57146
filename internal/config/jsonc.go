package config

import (
	"strings"
)

// StripJSONComments removes // and /* */ comments from JSONC content.
// Comment markers inside string literals are preserved.
func StripJSONComments(data []byte) []byte {
	input := string(data)
	var result strings.Builder
	result.Grow(len(input))

	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		c := input[i]

		if inString {
			result.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			result.WriteByte(c)
			continue
		}

		if c == '/' && i+1 < len(input) {
			switch input[i+1] {
			case '/':
				// Skip to end of line, keeping the newline
				for i+1 < len(input) && input[i+1] != '\n' {
					i++
				}
				continue
			case '*':
				i += 2
				for i+1 < len(input) && !(input[i] == '*' && input[i+1] == '/') {
					i++
				}
				i++ // land on the closing '/'
				continue
			}
		}

		result.WriteByte(c)
	}

	return []byte(result.String())
}
