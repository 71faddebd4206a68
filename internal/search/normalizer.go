package search

import (
	"regexp"
	"strings"
)

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)
	courseRe   = regexp.MustCompile(`^([a-z]+)([0-9]+)$`)
	yearRe     = regexp.MustCompile(`^\d{4}$`)
)

var termNames = map[string]struct{}{
	"spring": {},
	"summer": {},
	"fall":   {},
	"winter": {},
}

// Pattern is one lower-cased match pattern, OR-matched as a case-insensitive
// substring across the searchable text fields. When the source token was
// recognized as a course-code+number pair, Code and Number carry the split
// parts and the pattern additionally attempts a match against the
// concatenated course-code and course-number fields.
type Pattern struct {
	Text   string
	Code   string
	Number string
}

// IsCourse reports whether the pattern came from a course-code+number token.
func (p Pattern) IsCourse() bool {
	return p.Code != ""
}

// Query is the normalized form of a raw search string.
type Query struct {
	Patterns []Pattern
	// Term holds an extracted "<term> <year>" constraint (lower-cased),
	// matched separately against the record's term label. Empty when the
	// input carried no term/year pair.
	Term string
}

// IsEmpty reports whether the query constrains anything at all.
func (q Query) IsEmpty() bool {
	return len(q.Patterns) == 0 && q.Term == ""
}

// Normalize rewrites a raw free-text search string into match patterns plus
// an optional term/year constraint.
//
// A token like "cs1113" expands into both "cs1113" and "cs 1113"; the same
// text typed with a space stays two independent tokens. A term name followed
// by a 4-digit year ("fall 2024", "fall- 2024") becomes the term constraint;
// the term token is dropped from pattern generation but the year token is
// kept and may also match as a plain numeric pattern.
func Normalize(raw string) Query {
	lowered := strings.ToLower(raw)
	// percent is the LIKE wildcard; it never reaches the query
	lowered = strings.ReplaceAll(lowered, "%", "")
	tokens := strings.Fields(lowered)

	var q Query
	termIdx := -1
	for i := 0; i+1 < len(tokens); i++ {
		name := strings.TrimSuffix(tokens[i], "-")
		if _, ok := termNames[name]; ok && yearRe.MatchString(tokens[i+1]) {
			q.Term = name + " " + tokens[i+1]
			termIdx = i
			break
		}
	}

	seen := make(map[string]struct{})
	add := func(p Pattern) {
		if p.Text == "" {
			return
		}
		if _, dup := seen[p.Text]; dup {
			return
		}
		seen[p.Text] = struct{}{}
		q.Patterns = append(q.Patterns, p)
	}

	for i, tok := range tokens {
		if i == termIdx {
			continue
		}
		stripped := nonAlnumRe.ReplaceAllString(tok, "")
		if m := courseRe.FindStringSubmatch(stripped); m != nil {
			code, number := m[1], m[2]
			add(Pattern{Text: code + number, Code: code, Number: number})
			add(Pattern{Text: code + " " + number, Code: code, Number: number})
			continue
		}
		add(Pattern{Text: tok})
	}

	return q
}
