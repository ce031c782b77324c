package risk

// NestingDepth measures the maximum object/array nesting of bracketed
// content. It deliberately ignores the declared content type, since that field
// is untrusted, and a JSON bomb labeled text/plain must still be caught.
// Brackets inside double-quoted strings are skipped so ordinary prose with
// quotes does not inflate the measurement.
func NestingDepth(text string) int {
	depth, max := 0, 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
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

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > max {
				max = depth
			}
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}

	return max
}
