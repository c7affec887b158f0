package debugger

import (
	"fmt"
	"regexp"
	"strings"
)

// Tokenizer limits
const (
	// MaxTokens is the maximum number of tokens of an expression
	MaxTokens = 128
	// MaxTokenLen bounds the text of literals, registers and symbols (exclusive)
	MaxTokenLen = 32
)

// Token types for expression parsing
type TokenType int

const (
	// TokenNoType marks discarded input (whitespace). It is never emitted.
	TokenNoType TokenType = iota
	TokenHex
	TokenDecimal
	TokenRegister
	TokenSymbol
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenMod
	TokenLParen
	TokenRParen
	TokenEq
	TokenNotEq
	TokenGreaterEq
	TokenLessEq
	TokenShiftLeft
	TokenShiftRight
	TokenGreater
	TokenLess
	TokenNot
	TokenLogicAnd
	TokenLogicOr
	TokenAnd
	TokenOr
	TokenXor
	TokenInvert
	// TokenNeg is a minus sign in unary position
	TokenNeg
	// TokenDeref is a star in unary position
	TokenDeref
)

// String returns the string representation of a TokenType
func (t TokenType) String() string {
	switch t {
	case TokenNoType:
		return "notype"
	case TokenHex:
		return "hex"
	case TokenDecimal:
		return "decimal"
	case TokenRegister:
		return "register"
	case TokenSymbol:
		return "symbol"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenMul:
		return "*"
	case TokenDiv:
		return "/"
	case TokenMod:
		return "%"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenEq:
		return "=="
	case TokenNotEq:
		return "!="
	case TokenGreaterEq:
		return ">="
	case TokenLessEq:
		return "<="
	case TokenShiftLeft:
		return "<<"
	case TokenShiftRight:
		return ">>"
	case TokenGreater:
		return ">"
	case TokenLess:
		return "<"
	case TokenNot:
		return "!"
	case TokenLogicAnd:
		return "&&"
	case TokenLogicOr:
		return "||"
	case TokenAnd:
		return "&"
	case TokenOr:
		return "|"
	case TokenXor:
		return "^"
	case TokenInvert:
		return "~"
	case TokenNeg:
		return "neg"
	case TokenDeref:
		return "deref"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// hasText reports whether tokens of this type carry their source text
func (t TokenType) hasText() bool {
	switch t {
	case TokenHex, TokenDecimal, TokenRegister, TokenSymbol:
		return true
	}
	return false
}

// Token represents a lexical token in an expression. Value holds the
// matched text for literals, registers and symbols and is empty otherwise.
type Token struct {
	Type  TokenType
	Value string
}

// String returns the token text
func (t Token) String() string {
	if t.Type.hasText() {
		return t.Value
	}
	return t.Type.String()
}

type tokenRule struct {
	pattern *regexp.Regexp
	typ     TokenType
}

func rule(pattern string, typ TokenType) tokenRule {
	return tokenRule{pattern: regexp.MustCompile("^(?:" + pattern + ")"), typ: typ}
}

// Rules are tried in order and the first one matching at the cursor wins,
// so longer operators go before their prefixes.
var tokenRules = []tokenRule{
	rule(`\s+`, TokenNoType),
	rule(`0[xX][0-9a-fA-F]+`, TokenHex),
	rule(`[0-9]+`, TokenDecimal),
	rule(`\+`, TokenPlus),
	rule(`-`, TokenMinus),
	rule(`\*`, TokenMul),
	rule(`/`, TokenDiv),
	rule(`%`, TokenMod),
	rule(`\$\$?[a-z0-9]+`, TokenRegister),
	rule(`[a-zA-Z]+[a-zA-Z0-9_]*`, TokenSymbol),
	rule(`\(`, TokenLParen),
	rule(`\)`, TokenRParen),
	rule(`==`, TokenEq),
	rule(`!=`, TokenNotEq),
	rule(`>=`, TokenGreaterEq),
	rule(`<=`, TokenLessEq),
	rule(`<<`, TokenShiftLeft),
	rule(`>>`, TokenShiftRight),
	rule(`>`, TokenGreater),
	rule(`<`, TokenLess),
	rule(`!`, TokenNot),
	rule(`&&`, TokenLogicAnd),
	rule(`\|\|`, TokenLogicOr),
	rule(`&`, TokenAnd),
	rule(`\|`, TokenOr),
	rule(`\^`, TokenXor),
	rule(`~`, TokenInvert),
}

// binaryContext reports whether a '-' or '*' following the emitted tokens is a binary operator
func binaryContext(tokens []Token) bool {
	if len(tokens) == 0 {
		return false
	}
	switch tokens[len(tokens)-1].Type {
	case TokenDecimal, TokenHex, TokenRegister, TokenRParen:
		return true
	}
	return false
}

// Tokenize breaks an expression into tokens. The returned slice is owned by the caller.
func Tokenize(expr string) ([]Token, error) {
	tokens := make([]Token, 0, 8)
	position := 0

	for position < len(expr) {
		if len(tokens) >= MaxTokens {
			return nil, makeError(ErrParse, "subexpression ...%s causes a buffer overflow (more than %d tokens)", expr[position:], MaxTokens)
		}

		matched := false
		for _, r := range tokenRules {
			loc := r.pattern.FindStringIndex(expr[position:])
			if loc == nil {
				continue
			}

			text := expr[position : position+loc[1]]
			position += loc[1]
			matched = true

			switch r.typ {
			case TokenNoType:
			case TokenMinus:
				if binaryContext(tokens) {
					tokens = append(tokens, Token{Type: TokenMinus})
				} else {
					tokens = append(tokens, Token{Type: TokenNeg})
				}
			case TokenMul:
				if binaryContext(tokens) {
					tokens = append(tokens, Token{Type: TokenMul})
				} else {
					tokens = append(tokens, Token{Type: TokenDeref})
				}
			case TokenHex, TokenDecimal, TokenRegister, TokenSymbol:
				if len(text) >= MaxTokenLen {
					return nil, makeError(ErrParse, "token %s with size %d causes buffer overflow", text, len(text))
				}
				tokens = append(tokens, Token{Type: r.typ, Value: text})
			default:
				tokens = append(tokens, Token{Type: r.typ})
			}
			break
		}

		if !matched {
			return nil, makeError(ErrParse, "no match at position %d\n%s\n%s^", position, expr, strings.Repeat(" ", position))
		}
	}

	return tokens, nil
}
