package chtlgen

import (
	"strings"

	pc "github.com/shibukawa/parsercombinator"
)

type tokenKind int

const (
	IDENT tokenKind = iota
	STRING
	OPENED_BRACE
	CLOSED_BRACE
	COLON
	EQUALS
	SEMICOLON
	WHITESPACE
	NEWLINE
	OTHER
)

func (k tokenKind) String() string {
	switch k {
	case IDENT:
		return "identifier"
	case STRING:
		return "string"
	case OPENED_BRACE:
		return "{"
	case CLOSED_BRACE:
		return "}"
	case COLON:
		return ":"
	case EQUALS:
		return "="
	case SEMICOLON:
		return ";"
	case WHITESPACE:
		return "whitespace"
	case NEWLINE:
		return "newline"
	default:
		return "literal"
	}
}

type token struct {
	kind tokenKind
	text string
	// terminated is false for a string literal running to the end of input
	terminated bool
}

const delimiters = "{}:=;\"'"

// tokenize splits CHTL text into parser tokens; line and col locate src[0]
func tokenize(src string, line, col int) []pc.Token[token] {
	var tokens []pc.Token[token]

	i := 0
	for i < len(src) {
		start, startLine, startCol := i, line, col
		kind := OTHER
		terminated := true
		c := src[i]

		switch {
		case c == '\n' || c == '\r' || c == ' ' || c == '\t' || c == '\f':
			kind = WHITESPACE
			for i < len(src) && strings.IndexByte(" \t\r\n\f", src[i]) >= 0 {
				if src[i] == '\n' {
					kind = NEWLINE
				}
				i++
			}
		case c == '"' || c == '\'':
			kind = STRING
			i, terminated = stringEnd(src, i)
		case c == '{':
			kind, i = OPENED_BRACE, i+1
		case c == '}':
			kind, i = CLOSED_BRACE, i+1
		case c == ':':
			kind, i = COLON, i+1
		case c == '=':
			kind, i = EQUALS, i+1
		case c == ';':
			kind, i = SEMICOLON, i+1
		case isIdentStart(c):
			kind = IDENT
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
		default:
			for i < len(src) && !isSpace(src[i]) && strings.IndexByte(delimiters, src[i]) < 0 {
				i++
			}
		}

		text := src[start:i]
		tokens = append(tokens, pc.Token[token]{
			Type: "raw",
			Pos:  &pc.Pos{Line: startLine, Col: startCol, Index: start},
			Val:  token{kind: kind, text: text, terminated: terminated},
			Raw:  text,
		})

		for _, r := range text {
			if r == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
	}

	return tokens
}

func stringEnd(src string, i int) (int, bool) {
	delim := src[i]

	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case delim:
			return j + 1, true
		}
	}

	return len(src), false
}

// unquote strips the delimiters of a string literal and resolves escapes
func unquote(s string) string {
	if len(s) < 2 {
		return ""
	}

	body := s[1:]
	if body[len(body)-1] == s[0] {
		body = body[:len(body)-1]
	}

	if strings.IndexByte(body, '\\') < 0 {
		return body
	}

	var b strings.Builder

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}

		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(body[i])
		}
	}

	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '-'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
