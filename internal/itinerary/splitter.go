// Display splitting.
//
// The model mixes human commentary with the embedded JSON payload. The
// splitter separates the two for presentation: the prose before the first
// opening brace becomes the short summary shown above a modified plan, and
// when recovery failed the text is still scrubbed of fences and stray JSON
// so raw braces never reach the end user.
package itinerary

import "strings"

// Summary extracts the human-readable commentary from raw model text.
//
// When recovered is true the text carried a structured payload and the
// summary is everything before the first '{', with code fences stripped.
// When recovered is false the splitter still best-effort removes anything
// that looks like a fence or JSON remainder.
func Summary(text string, recovered bool) string {
	if recovered {
		cut := text
		if i := strings.IndexByte(cut, '{'); i >= 0 {
			cut = cut[:i]
		}
		return strings.TrimSpace(stripFences(cut))
	}
	return strings.TrimSpace(scrub(text))
}

// stripFences removes fence markers and their optional language tags while
// keeping the surrounding prose.
func stripFences(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// scrub drops fenced blocks wholesale and any line that is plainly JSON
// debris (starts or ends with a brace or bracket).
func scrub(s string) string {
	var (
		b       strings.Builder
		inFence bool
	)
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if isJSONDebris(t) {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func isJSONDebris(t string) bool {
	if t == "" {
		return false
	}
	switch t[0] {
	case '{', '}', '[', ']':
		return true
	}
	switch t[len(t)-1] {
	case '{', '}', '[', ']', ',':
		return strings.ContainsAny(t, `{}[]":`)
	}
	return false
}
