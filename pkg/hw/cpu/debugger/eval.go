package debugger

// Operator precedence, lowest binds loosest. Unary operators never split an expression.
const unaryPrecedence = 100

func precedence(t TokenType) int {
	switch t {
	case TokenLogicOr:
		return 0
	case TokenLogicAnd:
		return 1
	case TokenEq, TokenNotEq, TokenGreater, TokenLess, TokenGreaterEq, TokenLessEq:
		return 2
	case TokenShiftLeft, TokenShiftRight:
		return 3
	case TokenPlus, TokenMinus:
		return 4
	case TokenMul, TokenDiv, TokenMod:
		return 5
	case TokenXor:
		return 6
	case TokenOr:
		return 7
	case TokenAnd:
		return 8
	case TokenNot, TokenNeg, TokenDeref, TokenInvert:
		return unaryPrecedence
	default:
		return -1
	}
}

// ExpressionEvaluator evaluates expressions over the live machine state
type ExpressionEvaluator struct {
	registers RegisterReader
	memory    MemoryReader
	symbols   SymbolResolver
}

// NewExpressionEvaluator creates a new expression evaluator. symbols may be
// nil, in which case every symbol lookup fails.
func NewExpressionEvaluator(registers RegisterReader, memory MemoryReader, symbols SymbolResolver) *ExpressionEvaluator {
	return &ExpressionEvaluator{
		registers: registers,
		memory:    memory,
		symbols:   symbols,
	}
}

// SetSymbols replaces the symbol table used to resolve symbol tokens
func (e *ExpressionEvaluator) SetSymbols(symbols SymbolResolver) {
	e.symbols = symbols
}

// Eval evaluates an expression string and returns the result
func (e *ExpressionEvaluator) Eval(expr string) (uint32, error) {
	tokens, err := Tokenize(expr)
	if err != nil {
		return 0, err
	}
	return e.EvalTokens(tokens, 0, len(tokens)-1)
}

// EvalTokens evaluates the inclusive token range [p, q]
func (e *ExpressionEvaluator) EvalTokens(tokens []Token, p, q int) (uint32, error) {
	if p > q {
		return 0, makeError(ErrEval, "empty subexpression at token %d", p)
	}

	if p == q {
		return e.evalOperand(tokens[p])
	}

	enclosed, err := checkParentheses(tokens, p, q)
	if err != nil {
		return 0, err
	}
	if enclosed {
		return e.EvalTokens(tokens, p+1, q-1)
	}

	if op := dominantOperator(tokens, p, q); op != -1 {
		lhs, err := e.EvalTokens(tokens, p, op-1)
		if err != nil {
			return 0, err
		}
		rhs, err := e.EvalTokens(tokens, op+1, q)
		if err != nil {
			return 0, err
		}
		return applyBinary(tokens[op].Type, lhs, rhs)
	}

	return e.evalUnary(tokens, p, q)
}

func (e *ExpressionEvaluator) evalOperand(tok Token) (uint32, error) {
	switch tok.Type {
	case TokenDecimal, TokenHex:
		return parseLiteral(tok.Value), nil

	case TokenRegister:
		value, err := e.registers.ReadRegister(tok.Value[1:])
		if err != nil {
			return 0, makeError(ErrEval, "%v", err)
		}
		return value, nil

	case TokenSymbol:
		if e.symbols == nil {
			return 0, makeError(ErrEval, "no symbol table loaded, cannot resolve %s", tok.Value)
		}
		value, err := e.symbols.LookupByName(tok.Value)
		if err != nil {
			return 0, makeError(ErrEval, "%v", err)
		}
		return value, nil

	default:
		return 0, makeError(ErrEval, "unexpected %s where an operand was expected", tok)
	}
}

func (e *ExpressionEvaluator) evalUnary(tokens []Token, p, q int) (uint32, error) {
	op := tokens[p].Type
	switch op {
	case TokenNeg, TokenDeref, TokenNot, TokenInvert:
	default:
		return 0, makeError(ErrEval, "unknown unary operation %s", tokens[p])
	}

	value, err := e.EvalTokens(tokens, p+1, q)
	if err != nil {
		return 0, err
	}

	switch op {
	case TokenNeg:
		return -value, nil
	case TokenNot:
		return boolWord(value == 0), nil
	case TokenInvert:
		return ^value, nil
	default:
		word, err := e.memory.ReadMemory(value, 4)
		if err != nil {
			return 0, makeError(ErrEval, "cannot dereference 0x%08x: %v", value, err)
		}
		return word, nil
	}
}

// applyBinary computes lhs op rhs with 32 bit wrap around
func applyBinary(op TokenType, lhs, rhs uint32) (uint32, error) {
	switch op {
	case TokenLogicOr:
		return boolWord(lhs != 0 || rhs != 0), nil
	case TokenLogicAnd:
		return boolWord(lhs != 0 && rhs != 0), nil
	case TokenEq:
		return boolWord(lhs == rhs), nil
	case TokenNotEq:
		return boolWord(lhs != rhs), nil
	case TokenLessEq:
		return boolWord(lhs <= rhs), nil
	case TokenGreaterEq:
		return boolWord(lhs >= rhs), nil
	case TokenLess:
		return boolWord(lhs < rhs), nil
	case TokenGreater:
		return boolWord(lhs > rhs), nil
	case TokenShiftLeft:
		return lhs << (rhs & 0x1f), nil
	case TokenShiftRight:
		return lhs >> (rhs & 0x1f), nil
	case TokenPlus:
		return lhs + rhs, nil
	case TokenMinus:
		return lhs - rhs, nil
	case TokenMul:
		return lhs * rhs, nil
	case TokenDiv:
		if rhs == 0 {
			return 0, makeError(ErrDivisionByZero, "%d / 0", lhs)
		}
		return lhs / rhs, nil
	case TokenMod:
		if rhs == 0 {
			return 0, makeError(ErrDivisionByZero, "%d %% 0", lhs)
		}
		return lhs % rhs, nil
	case TokenXor:
		return lhs ^ rhs, nil
	case TokenOr:
		return lhs | rhs, nil
	case TokenAnd:
		return lhs & rhs, nil
	default:
		return 0, makeError(ErrEval, "unknown binary operation %s", op)
	}
}

// checkParentheses reports whether [p, q] is wrapped by a matching pair of
// parentheses. Unbalanced parentheses are an error.
func checkParentheses(tokens []Token, p, q int) (bool, error) {
	if tokens[p].Type != TokenLParen || tokens[q].Type != TokenRParen {
		return false, nil
	}

	depth := 0
	for i := p; i <= q; i++ {
		switch tokens[i].Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		}
		if depth < 0 {
			return false, makeError(ErrEval, "unbalanced parentheses")
		}
		if depth == 0 && i != q {
			return false, nil
		}
	}

	if depth != 0 {
		return false, makeError(ErrEval, "unbalanced parentheses")
	}
	return true, nil
}

// dominantOperator returns the index of the binary operator evaluated last
// in [p, q]: the loosest binding one outside parentheses, the rightmost among
// equals. Returns -1 when there is none.
func dominantOperator(tokens []Token, p, q int) int {
	split := -1
	depth := 0

	for i := p; i <= q; i++ {
		switch tokens[i].Type {
		case TokenLParen:
			depth++
			continue
		case TokenRParen:
			depth--
			continue
		}

		prec := precedence(tokens[i].Type)
		if depth != 0 || prec == -1 || prec == unaryPrecedence {
			continue
		}
		if split == -1 || prec <= precedence(tokens[split].Type) {
			split = i
		}
	}

	return split
}

// parseLiteral converts a literal the way C's strtoul with base 0 does:
// 0x prefix is hexadecimal, a leading 0 is octal, anything else decimal.
// Parsing stops at the first digit invalid for the base and values wider
// than 64 bits saturate. The result is truncated to a word.
func parseLiteral(text string) uint32 {
	base := uint64(10)
	digits := text
	switch {
	case len(text) > 2 && (text[:2] == "0x" || text[:2] == "0X"):
		base, digits = 16, text[2:]
	case len(text) > 1 && text[0] == '0':
		base, digits = 8, text[1:]
	}

	var value uint64
	for i := 0; i < len(digits); i++ {
		d, ok := digitValue(digits[i])
		if !ok || d >= base {
			break
		}
		if value > (^uint64(0)-d)/base {
			value = ^uint64(0)
			break
		}
		value = value*base + d
	}

	return uint32(value)
}

func digitValue(c byte) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
