package pgn

import (
	"strings"
	"unicode"
)

type TokenKind int

const (
	TokenMove TokenKind = iota
	TokenVariationStart
	TokenVariationEnd
	TokenResult
)

type Token struct {
	Kind    TokenKind
	Value   string
	Comment string
	NAGs    []string
}

// ParsePgnBody splits movetext into moves, variation brackets and results.
// Move numbers are dropped; a {comment} and $n glyphs attach to the token
// before them.
func ParsePgnBody(bodyRaw string) []Token {
	var result []Token
	var inComment = false
	var body = &strings.Builder{}

	var flush = func() {
		if body.Len() == 0 {
			return
		}
		var value = body.String()
		body.Reset()
		switch {
		case strings.HasPrefix(value, "$"):
			if len(result) != 0 {
				result[len(result)-1].NAGs = append(result[len(result)-1].NAGs, value)
			}
		case isResult(value):
			result = append(result, Token{Kind: TokenResult, Value: value})
		default:
			result = append(result, Token{Kind: TokenMove, Value: value})
		}
	}

	for _, r := range bodyRaw {
		if inComment {
			if r == '}' {
				if len(result) != 0 {
					var last = &result[len(result)-1]
					last.Comment = joinComment(last.Comment, body.String())
				}
				inComment = false
				body.Reset()
			} else {
				body.WriteRune(r)
			}
			continue
		}
		switch {
		case r == '.':
			body.Reset()
		case unicode.IsSpace(r):
			flush()
		case r == '{':
			flush()
			inComment = true
		case r == '(':
			flush()
			result = append(result, Token{Kind: TokenVariationStart, Value: "("})
		case r == ')':
			flush()
			result = append(result, Token{Kind: TokenVariationEnd, Value: ")"})
		default:
			body.WriteRune(r)
		}
	}
	if !inComment {
		flush()
	}
	return result
}

func isResult(s string) bool {
	switch s {
	case GameResultNone, GameResultWhiteWin, GameResultBlackWin, GameResultDraw:
		return true
	}
	return false
}

func joinComment(a, b string) string {
	b = strings.Join(strings.Fields(b), " ")
	if a == "" {
		return b
	}
	return a + " " + b
}

// MainLine returns the moves outside of any variation.
func MainLine(tokens []Token) []string {
	var moves []string
	var depth int
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenVariationStart:
			depth++
		case TokenVariationEnd:
			if depth > 0 {
				depth--
			}
		case TokenMove:
			if depth == 0 {
				moves = append(moves, tok.Value)
			}
		}
	}
	return moves
}
