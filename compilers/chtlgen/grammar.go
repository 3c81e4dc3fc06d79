package chtlgen

import (
	"slices"

	pc "github.com/shibukawa/parsercombinator"
)

// statement labels, stored in the Type of the first matched token
const (
	stmtSpace     = "space"
	stmtAttribute = "attribute"
	stmtElement   = "element"
	stmtOpen      = "open"
	stmtClose     = "close"
	stmtStatement = "statement"
	partValue     = "value"
)

var (
	ident     = kindOf("identifier", IDENT)
	str       = kindOf("string", STRING)
	openBrace = kindOf("{", OPENED_BRACE)
	closeBr   = kindOf("}", CLOSED_BRACE)
	assign    = kindOf("assign", COLON, EQUALS)
	semicolon = kindOf(";", SEMICOLON)
	blank     = kindOf("space", WHITESPACE, NEWLINE)
	inline    = kindOf("inline space", WHITESPACE)

	// sp skips whitespace including newlines
	sp = pc.Drop(pc.ZeroOrMore("space", blank))

	// unquoted values run to `;`, `}` or the end of the line
	literalPart = kindOf("literal", IDENT, OTHER, COLON, EQUALS, WHITESPACE)
	value       = mark(partValue, pc.Or(
		str,
		pc.Seq(kindOf("literal", IDENT, OTHER), pc.ZeroOrMore("literal", literalPart)),
	))

	statementPart = kindOf("statement", IDENT, STRING, COLON, EQUALS, WHITESPACE, NEWLINE, OTHER)

	statement = pc.Or(
		label(stmtSpace, blank, sp),
		label(stmtAttribute, ident, pc.Drop(pc.ZeroOrMore("space", inline)), assign, sp, value, pc.Drop(pc.ZeroOrMore("space", inline)), pc.Optional(semicolon)),
		label(stmtElement, ident, sp, openBrace),
		label(stmtClose, closeBr),
		label(stmtOpen, openBrace),
		label(stmtStatement, statementPart, pc.ZeroOrMore("statement", statementPart), pc.Optional(semicolon)),
		label(stmtStatement, semicolon),
	)
)

func kindOf(name string, kinds ...tokenKind) pc.Parser[token] {
	return func(pctx *pc.ParseContext[token], tokens []pc.Token[token]) (int, []pc.Token[token], error) {
		if len(tokens) > 0 && slices.Contains(kinds, tokens[0].Val.kind) {
			return 1, tokens[:1], nil
		}

		return 0, nil, pc.ErrNotMatch
	}
}

// label runs a sequence and tags its first token with the statement name
func label(name string, p ...pc.Parser[token]) pc.Parser[token] {
	return pc.Trans(pc.Seq(p...), func(pctx *pc.ParseContext[token], src []pc.Token[token]) ([]pc.Token[token], error) {
		out := slices.Clone(src)
		if len(out) > 0 {
			out[0].Type = name
		}

		return out, nil
	})
}

// mark tags every token matched by p
func mark(name string, p pc.Parser[token]) pc.Parser[token] {
	return pc.Trans(p, func(pctx *pc.ParseContext[token], src []pc.Token[token]) ([]pc.Token[token], error) {
		out := slices.Clone(src)
		for i := range out {
			out[i].Type = name
		}

		return out, nil
	})
}
