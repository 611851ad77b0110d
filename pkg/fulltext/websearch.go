// Package fulltext turns user search input into SQLite FTS5 MATCH
// expressions.
//
// The accepted syntax is the web search syntax most users already know:
//
//	fat cat          both words
//	"fat cat"        the phrase
//	fat or cat       either word
//	fat -cat         fat but not cat
//
// Every term is emitted as a quoted FTS5 string so punctuation in the input
// can never be read as FTS5 syntax.
package fulltext

import (
	"strings"
	"unicode"
)

type token struct {
	text   string
	negate bool
	or     bool
}

// Websearch converts query into an FTS5 MATCH expression. It returns an empty
// string when the query has no positive term, in which case nothing can match.
func Websearch(query string) string {
	var (
		groups    [][]string // OR groups, ANDed together
		negatives []string
		pendingOr bool
	)

	for _, tok := range tokenize(query) {
		if tok.or {
			pendingOr = len(groups) > 0
			continue
		}
		term := Quote(tok.text)
		if tok.negate {
			negatives = append(negatives, term)
			pendingOr = false
			continue
		}
		if pendingOr {
			last := len(groups) - 1
			groups[last] = append(groups[last], term)
		} else {
			groups = append(groups, []string{term})
		}
		pendingOr = false
	}

	if len(groups) == 0 {
		return ""
	}

	clauses := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g) == 1 {
			clauses = append(clauses, g[0])
			continue
		}
		clauses = append(clauses, "("+strings.Join(g, " OR ")+")")
	}

	expr := strings.Join(clauses, " AND ")
	if len(negatives) > 0 {
		if len(clauses) > 1 {
			expr = "(" + expr + ")"
		}
		expr += " NOT " + strings.Join(negatives, " NOT ")
	}
	return expr
}

// Quote returns term as an FTS5 string literal.
func Quote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

func tokenize(query string) []token {
	var tokens []token
	runes := []rune(query)

	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}

		negate := false
		if runes[i] == '-' && i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			negate = true
			i++
		}

		if runes[i] == '"' {
			end := i + 1
			for end < len(runes) && runes[end] != '"' {
				end++
			}
			text := strings.Join(strings.Fields(string(runes[i+1:end])), " ")
			if hasWordChar(text) {
				tokens = append(tokens, token{text: text, negate: negate})
			}
			i = end + 1
			continue
		}

		end := i
		for end < len(runes) && !unicode.IsSpace(runes[end]) && runes[end] != '"' {
			end++
		}
		text := string(runes[i:end])
		i = end

		if !negate && strings.EqualFold(text, "or") {
			tokens = append(tokens, token{or: true})
			continue
		}
		if hasWordChar(text) {
			tokens = append(tokens, token{text: text, negate: negate})
		}
	}

	return tokens
}

// hasWordChar reports whether s contains something the FTS5 tokenizer would
// index. Terms made only of punctuation produce empty phrases.
func hasWordChar(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
