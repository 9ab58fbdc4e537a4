package fooddata

import "strings"

// splitIngredients splits a label ingredient statement on commas that are
// not nested in brackets, so "SALT, SPICES (PAPRIKA, CUMIN)." yields
// ["SALT", "SPICES (PAPRIKA, CUMIN)"]. Entries are trimmed, a trailing
// period is dropped and blank entries are skipped.
func splitIngredients(statement string) []string {
	var (
		out   []string
		depth int
		start int
	)

	flush := func(end int) {
		item := strings.TrimSpace(statement[start:end])
		item = strings.TrimSpace(strings.TrimSuffix(item, "."))
		if item != "" {
			out = append(out, item)
		}
	}

	for i, r := range statement {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(statement))

	return out
}
