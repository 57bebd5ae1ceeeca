package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeModelJSON parses model output into target, tolerating the payload
// damage generative models commonly produce. It tries a strict parse first,
// then a cleanup pass (code fences, surrounding prose, trailing commas,
// curly quotes), and finally a truncation repair that closes unbalanced
// brackets.
func DecodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	cleaned := cleanupJSONPayload(trimmed)
	if cleaned != "" && cleaned != trimmed {
		if err := json.Unmarshal([]byte(cleaned), target); err == nil {
			return nil
		}
	}
	if cleaned == "" {
		cleaned = trimmed
	}

	repaired := repairTruncatedJSON(cleaned)
	if repaired != "" && repaired != cleaned {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
}

func cleanupJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	trimmed = extractBracketedPayload(trimmed)
	trimmed = normalizeQuotes(trimmed)
	trimmed = stripTrailingCommas(trimmed)
	return strings.TrimSpace(trimmed)
}

func extractBracketedPayload(content string) string {
	if content == "" {
		return content
	}
	if content[0] == '{' || content[0] == '[' {
		return content
	}
	// The payload may be an object or an array; whichever opener appears
	// first wins, so an array of objects is not cut down to its first
	// element.
	objStart := strings.Index(content, "{")
	arrStart := strings.Index(content, "[")
	start, closer := objStart, byte('}')
	if objStart < 0 || (arrStart >= 0 && arrStart < objStart) {
		start, closer = arrStart, ']'
	}
	if start < 0 {
		return content
	}
	if end := strings.LastIndexByte(content, closer); end > start {
		return strings.TrimSpace(content[start : end+1])
	}
	return strings.TrimSpace(content[start:])
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// normalizeQuotes rewrites curly quotation marks outside string literals so
// that keys quoted with typographic quotes still parse. Characters inside
// properly quoted strings are left untouched.
func normalizeQuotes(content string) string {
	if !strings.ContainsAny(content, "“”") {
		return content
	}
	var b strings.Builder
	b.Grow(len(content))
	inString := false
	escaped := false
	for _, r := range content {
		if inString {
			b.WriteRune(r)
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
			continue
		}
		switch r {
		case '“', '”':
			b.WriteRune('"')
			inString = true
		case '"':
			b.WriteRune(r)
			inString = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripTrailingCommas removes commas that directly precede a closing bracket.
func stripTrailingCommas(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	inString := false
	escaped := false
	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			b.WriteRune(r)
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
			continue
		}
		if r == '"' {
			inString = true
			b.WriteRune(r)
			continue
		}
		if r == ',' {
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// repairTruncatedJSON closes unbalanced brackets and an unterminated string
// at the end of a payload that was cut off mid-stream. Dangling partial
// elements are peeled back to the preceding comma until the result parses.
func repairTruncatedJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	candidate, depth, lastComma := closeBrackets(trimmed)
	if isCompleteJSONValue(candidate) {
		return candidate
	}

	// The truncation landed inside an element. Cut at the last comma of the
	// shallowest unclosed container so the partial element is dropped whole.
	for d := 1; d <= depth; d++ {
		pos, ok := lastComma[d]
		if !ok {
			continue
		}
		candidate, _, _ = closeBrackets(strings.TrimSpace(trimmed[:pos]))
		if isCompleteJSONValue(candidate) {
			return candidate
		}
	}
	return ""
}

// closeBrackets appends closers for every unbalanced bracket (terminating an
// open string literal first) and reports the final nesting depth plus the
// byte offset of the last comma seen at each depth.
func closeBrackets(content string) (string, int, map[int]int) {
	var stack []rune
	inString := false
	escaped := false
	lastComma := make(map[int]int)
	for i, r := range content {
		if inString {
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == r {
				stack = stack[:len(stack)-1]
			}
		case ',':
			lastComma[len(stack)] = i
		}
	}

	var b strings.Builder
	b.WriteString(content)
	if inString {
		b.WriteRune('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteRune(stack[i])
	}
	return b.String(), len(stack), lastComma
}

func isCompleteJSONValue(candidate string) bool {
	var sink any
	return json.Unmarshal([]byte(candidate), &sink) == nil
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	const limit = 160
	if len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "..."
}
