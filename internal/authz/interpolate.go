package authz

import "strings"

// interpolate substitutes {{userId}}, {{operatorId}} and {{resourceId}}
// tokens in a string condition value with fields from the context.
// Non-string values pass through unchanged. The input is scanned in a
// single left-to-right pass, so substituted text is never rescanned; a
// context value that itself contains "{{userId}}" stays literal.
func interpolate(actx *Context, value any) any {
	s, ok := value.(string)
	if !ok || !strings.Contains(s, "{{") {
		return value
	}

	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end == -1 {
			b.WriteString(rest)
			break
		}
		end += start
		b.WriteString(rest[:start])

		token := rest[start+2 : end]
		if val, known := tokenValue(actx, token); known {
			b.WriteString(val)
		} else {
			// Unknown token stays as-is
			b.WriteString(rest[start : end+2])
		}
		rest = rest[end+2:]
	}
	return b.String()
}

func tokenValue(actx *Context, token string) (string, bool) {
	switch token {
	case "userId":
		return actx.UserID, true
	case "operatorId":
		return actx.OperatorID, true
	case "resourceId":
		return actx.ResourceID, true
	}
	return "", false
}
