// JSON truncation repair.
//
// Model output is routinely cut off mid-object by the output-length budget.
// Repair makes the damage explicit and mechanical: a three-state scanner
// (Normal / InString / Escape) walks the candidate once, tracking unmatched
// brace and bracket depth. A still-open candidate is cut back to its last
// complete object boundary and the exact number of missing closers is
// appended. Everything here is pure string work with no I/O so the behavior
// is directly unit-testable.
package itinerary

type scanState int

const (
	stateNormal scanState = iota
	stateInString
	stateEscape
)

// openDepths scans s and returns the number of unmatched '{' and '['
// outside string literals.
func openDepths(s string) (braces, brackets int) {
	st := stateNormal
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch st {
		case stateNormal:
			switch c {
			case '"':
				st = stateInString
			case '{':
				braces++
			case '}':
				braces--
			case '[':
				brackets++
			case ']':
				brackets--
			}
		case stateInString:
			switch c {
			case '\\':
				st = stateEscape
			case '"':
				st = stateNormal
			}
		case stateEscape:
			st = stateInString
		}
	}
	return braces, brackets
}

// lastCompleteObjectEnd returns the index just past the last '}' that closes
// an object in Normal state, or -1 when the candidate contains no complete
// object at all (truncation hit before the first nested object finished).
func lastCompleteObjectEnd(s string) int {
	st := stateNormal
	last := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch st {
		case stateNormal:
			switch c {
			case '"':
				st = stateInString
			case '}':
				last = i + 1
			}
		case stateInString:
			switch c {
			case '\\':
				st = stateEscape
			case '"':
				st = stateNormal
			}
		case stateEscape:
			st = stateInString
		}
	}
	return last
}

// stripTrailingCommas removes a comma that sits (modulo whitespace)
// immediately before a closing '}' or ']', outside string literals. The
// scan runs right-to-left over a single left-to-right state pass so string
// contents are never touched.
func stripTrailingCommas(s string) string {
	// Mark which bytes are inside string literals.
	inStr := make([]bool, len(s))
	st := stateNormal
	for i := 0; i < len(s); i++ {
		switch st {
		case stateNormal:
			if s[i] == '"' {
				st = stateInString
				inStr[i] = true
			}
		case stateInString:
			inStr[i] = true
			switch s[i] {
			case '\\':
				st = stateEscape
			case '"':
				st = stateNormal
			}
		case stateEscape:
			inStr[i] = true
			st = stateInString
		}
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c == '}' || c == ']') && !inStr[i] {
			// Drop a trailing comma emitted just before this closer.
			j := len(out) - 1
			for j >= 0 && (out[j] == ' ' || out[j] == '\t' || out[j] == '\n' || out[j] == '\r') {
				j--
			}
			if j >= 0 && out[j] == ',' {
				out = append(out[:j], out[j+1:len(out)]...)
			}
		}
		out = append(out, c)
	}
	return string(out)
}

// repair applies the full pass to one candidate: trailing-comma strip, then
// truncation recovery when the candidate is still open. The boolean reports
// whether truncation repair was needed, which callers surface as a
// partial-recovery flag. An empty return means the candidate is beyond
// repair (no complete object survived the cutoff).
func repair(candidate string) (string, bool) {
	s := stripTrailingCommas(candidate)

	braces, brackets := openDepths(s)
	if braces <= 0 && brackets <= 0 {
		return s, false
	}

	end := lastCompleteObjectEnd(s)
	if end < 0 {
		return "", true
	}
	s = stripTrailingCommas(s[:end])

	braces, brackets = openDepths(s)
	if braces < 0 || brackets < 0 {
		return "", true
	}
	closers := make([]byte, 0, braces+brackets)
	for i := 0; i < brackets; i++ {
		closers = append(closers, ']')
	}
	for i := 0; i < braces; i++ {
		closers = append(closers, '}')
	}
	return s + string(closers), true
}
