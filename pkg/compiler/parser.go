package compiler

import (
	"fmt"
	"strings"
)

// SyntaxError is a grammar fault. The parser records it, resynchronises and
// keeps going.
type SyntaxError struct {
	Line    int
	Message string
	Snippet string // trimmed source line, empty when unavailable
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Parser is a recursive-descent parser for ABS that drives the semantic
// actions of a Compilation as it recognises each construct. It builds no
// tree.
//
// Grammar:
//
//	program    = "PROGRAM" ident ";" [globals] { subprogram } main EOF
//	globals    = "GLOBAL" { decl }
//	decl       = type ident { "," ident } ";"
//	subprogram = "FUNCTION" ident "(" [params] ")" ":" type { decl } block
//	           | "PROCEDURE" ident "(" [params] ")" { decl } block
//	params     = type ident { "," type ident }
//	main       = "MAIN" block
//	block      = "BEGIN" { stmt } "END"
//	stmt       = ident ":=" expr ";" | ident "++" ";" | ident "--" ";"
//	           | "IF" "(" cond ")" "THEN" block [ "ELSE" block ]
//	           | "WRITE" "(" expr ")" ";" | "RETURN" expr ";"
//	cond       = expr [ relop expr ]
//	expr       = term { ("+" | "-") term }
//	term       = unary { ("*" | "/" | "MOD" | "DIV") unary }
//	unary      = ("NOT" | "-") unary | primary
//	primary    = literal | ident | "(" expr ")"
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string

	c       *Compilation
	routine *Symbol // enclosing FUNCTION or PROCEDURE, nil in MAIN
	errors  []*SyntaxError
}

func NewParser(tokens []Token, rawSource string, c *Compilation) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n"), c: c}
}

// fmtError builds a SyntaxError carrying the source line where tok appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) *SyntaxError {
	snippet := ""
	if idx := tok.Line - 1; idx >= 0 && idx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[idx])
	}
	return &SyntaxError{Line: tok.Line, Message: fmt.Sprintf(format, args...), Snippet: snippet}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, *SyntaxError) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) record(err *SyntaxError) {
	p.errors = append(p.errors, err)
	p.c.log.Debug("syntax error", "line", err.Line, "msg", err.Message)
}

// Parse recognises a whole program and returns every syntax error found.
func (p *Parser) Parse() []*SyntaxError {
	if err := p.parseHeader(); err != nil {
		p.record(err)
		p.syncTopLevel()
	}

	seenMain := false
	seenRoutine := false
	for p.peek().Type != EOF {
		tok := p.peek()
		switch tok.Type {
		case GLOBAL:
			if seenRoutine || seenMain {
				p.record(p.fmtError(tok, "GLOBAL section must precede functions, procedures and MAIN"))
			}
			p.advance()
			p.parseDeclarations()
		case FUNCTION, PROCEDURE:
			seenRoutine = true
			if seenMain {
				p.record(p.fmtError(tok, "%s declared after MAIN", tok.Lexeme))
			}
			if err := p.parseSubprogram(); err != nil {
				p.record(err)
				p.syncTopLevel()
			}
		case MAIN:
			if seenMain {
				p.record(p.fmtError(tok, "duplicate MAIN block"))
			}
			seenMain = true
			if err := p.parseMain(); err != nil {
				p.record(err)
				p.syncTopLevel()
			}
		default:
			p.record(p.fmtError(tok, "unexpected %s (%q)", tok.Type, tok.Lexeme))
			p.advance()
			p.syncTopLevel()
		}
	}
	if !seenMain {
		p.record(p.fmtError(p.peek(), "missing MAIN block"))
	}
	return p.errors
}

// syncTopLevel skips to the next GLOBAL, FUNCTION, PROCEDURE or MAIN.
func (p *Parser) syncTopLevel() {
	for {
		switch p.peek().Type {
		case EOF, GLOBAL, FUNCTION, PROCEDURE, MAIN:
			return
		}
		p.advance()
	}
}

// synchronize skips the rest of a broken statement: up to and including
// the next ';' outside any block, or up to an END closing the current block.
func (p *Parser) synchronize() {
	depth := 0
	for {
		switch p.peek().Type {
		case EOF:
			return
		case SEMICOLON:
			p.advance()
			if depth == 0 {
				return
			}
		case BEGIN:
			depth++
			p.advance()
		case END:
			if depth == 0 {
				return
			}
			depth--
			p.advance()
			if depth == 0 && p.peek().Type != ELSE {
				return
			}
		default:
			p.advance()
		}
	}
}

func (p *Parser) parseHeader() *SyntaxError {
	if _, err := p.expect(PROGRAM); err != nil {
		return err
	}
	if _, err := p.expect(IDENTIFIER); err != nil {
		return err
	}
	_, err := p.expect(SEMICOLON)
	return err
}

// parseType consumes one of INT, REAL, CHAR or STRING.
func (p *Parser) parseType() (Type, *SyntaxError) {
	tok := p.peek()
	if !tok.Type.isTypeKeyword() {
		return TypeNone, p.fmtError(tok, "expected a type, got %s (%q)", tok.Type, tok.Lexeme)
	}
	p.advance()
	t, _ := ParseType(tok.Lexeme)
	return t, nil
}

// parseDeclarations declares variables in the current scope while a type
// keyword starts the next token.
func (p *Parser) parseDeclarations() {
	for p.peek().Type.isTypeKeyword() {
		if err := p.parseDecl(); err != nil {
			p.record(err)
			p.synchronize()
		}
	}
}

func (p *Parser) parseDecl() *SyntaxError {
	t, err := p.parseType()
	if err != nil {
		return err
	}
	for {
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return err
		}
		if !p.c.Symbols.AddVariable(name.Lexeme, t, name.Line) {
			p.c.Errors.AddError(name.Line,
				fmt.Sprintf("variable '%s' already declared in scope %s", name.Lexeme, p.c.Symbols.CurrentScope()),
				FaultDoubleDefinition)
		} else if p.c.Symbols.CurrentScope() == GlobalScope {
			// Globals become .bss labels.
			if err := p.c.Code.CheckStorageName(name.Lexeme); err != nil {
				p.c.Errors.AddError(name.Line, err.Error(), FaultGeneral)
			}
		}
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	_, err = p.expect(SEMICOLON)
	return err
}

// parseSubprogram handles FUNCTION and PROCEDURE definitions. Bodies are
// analyzed with code emission switched off.
func (p *Parser) parseSubprogram() *SyntaxError {
	kw := p.advance()
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return err
	}

	var paramNames []string
	var paramTypes []Type
	var paramLines []int
	if p.peek().Type != RPAREN {
		for {
			t, err := p.parseType()
			if err != nil {
				return err
			}
			ident, err := p.expect(IDENTIFIER)
			if err != nil {
				return err
			}
			paramNames = append(paramNames, ident.Lexeme)
			paramTypes = append(paramTypes, t)
			paramLines = append(paramLines, ident.Line)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return err
	}

	var added bool
	sym := Symbol{Name: name.Lexeme, Scope: GlobalScope, Line: name.Line, ParamNames: paramNames, ParamTypes: paramTypes}
	if kw.Type == FUNCTION {
		if _, err := p.expect(COLON); err != nil {
			return err
		}
		ret, err := p.parseType()
		if err != nil {
			return err
		}
		sym.Type, sym.ReturnType, sym.Category = ret, ret, CategoryFunction
		added = p.c.Symbols.AddFunction(name.Lexeme, name.Line, paramNames, paramTypes, ret)
	} else {
		sym.Category = CategoryProcedure
		added = p.c.Symbols.AddProcedure(name.Lexeme, name.Line, paramNames, paramTypes)
	}
	if !added {
		p.c.Errors.AddError(name.Line, fmt.Sprintf("'%s' already declared", name.Lexeme), FaultDoubleDefinition)
	}

	p.c.Symbols.EnterScope(name.Lexeme)
	defer p.c.Symbols.ExitScope()
	for i, pn := range paramNames {
		if !p.c.Symbols.AddParameter(pn, paramTypes[i], paramLines[i]) {
			p.c.Errors.AddError(paramLines[i],
				fmt.Sprintf("parameter '%s' already declared in %s", pn, name.Lexeme), FaultDoubleDefinition)
		}
	}
	p.parseDeclarations()

	p.routine = &sym
	prev := p.c.Code.SetEmitting(false)
	defer func() {
		p.routine = nil
		p.c.Code.SetEmitting(prev)
	}()
	return p.parseBlock()
}

func (p *Parser) parseMain() *SyntaxError {
	p.advance() // MAIN
	p.c.Symbols.EnterScope(MainScope)
	defer p.c.Symbols.ExitScope()
	return p.parseBlock()
}

// parseBlock parses BEGIN { stmt } END. Broken statements are recorded and
// skipped; only a missing BEGIN or END fails the block.
func (p *Parser) parseBlock() *SyntaxError {
	if _, err := p.expect(BEGIN); err != nil {
		return err
	}
	for p.peek().Type != END && p.peek().Type != EOF {
		depth := p.c.Stack.Len()
		if err := p.parseStatement(); err != nil {
			p.record(err)
			p.c.Stack.Truncate(depth)
			p.synchronize()
		}
	}
	_, err := p.expect(END)
	return err
}

func (p *Parser) parseStatement() *SyntaxError {
	tok := p.peek()
	switch tok.Type {
	case IDENTIFIER:
		return p.parseSimpleStatement()
	case IF:
		return p.parseIf()
	case WRITE:
		return p.parseWrite()
	case RETURN:
		return p.parseReturn()
	}
	if tok.Type.isTypeKeyword() {
		return p.fmtError(tok, "declarations are not allowed inside a block")
	}
	return p.fmtError(tok, "unexpected %s (%q) at start of statement", tok.Type, tok.Lexeme)
}

// parseSimpleStatement handles assignment, ++ and --.
func (p *Parser) parseSimpleStatement() *SyntaxError {
	name := p.advance()
	op := p.peek()
	switch op.Type {
	case ASSIGN:
		p.advance()
		if err := p.parseExpr(); err != nil {
			return err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return err
		}
		p.c.Stack.Assign(name.Lexeme, name.Line)
	case PLUS_PLUS, MINUS_MINUS:
		p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return err
		}
		if op.Type == PLUS_PLUS {
			p.c.Stack.Increment(name.Lexeme, name.Line)
		} else {
			p.c.Stack.Decrement(name.Lexeme, name.Line)
		}
	default:
		return p.fmtError(op, "expected ':=', '++' or '--' after %q, got %q", name.Lexeme, op.Lexeme)
	}
	return nil
}

func (p *Parser) parseIf() *SyntaxError {
	p.advance() // IF
	if _, err := p.expect(LPAREN); err != nil {
		return err
	}
	if err := p.parseCondition(); err != nil {
		return err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return err
	}
	if _, err := p.expect(THEN); err != nil {
		return err
	}

	labelFalse := p.c.Stack.BeginIf()
	if err := p.parseBlock(); err != nil {
		return err
	}
	if p.peek().Type != ELSE {
		p.c.Stack.EndIf(labelFalse)
		return nil
	}
	p.advance()
	labelEnd := p.c.Stack.Else(labelFalse)
	if err := p.parseBlock(); err != nil {
		return err
	}
	p.c.Stack.EndIfElse(labelEnd)
	return nil
}

func (p *Parser) parseWrite() *SyntaxError {
	tok := p.advance() // WRITE
	if _, err := p.expect(LPAREN); err != nil {
		return err
	}
	if err := p.parseExpr(); err != nil {
		return err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}
	p.c.Stack.Write(tok.Line)
	return nil
}

func (p *Parser) parseReturn() *SyntaxError {
	tok := p.advance() // RETURN
	if err := p.parseExpr(); err != nil {
		return err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return err
	}

	value := p.c.Stack.Peek()
	switch {
	case p.routine == nil:
		p.c.Errors.AddError(tok.Line, "RETURN outside a function", FaultGeneral)
	case p.routine.Category == CategoryProcedure:
		p.c.Errors.AddError(tok.Line, fmt.Sprintf("procedure '%s' cannot return a value", p.routine.Name), FaultGeneral)
	case !assignable(p.routine.ReturnType, value.EntryType()):
		p.c.Errors.AddError(tok.Line,
			fmt.Sprintf("function '%s' returns %v, not %v", p.routine.Name, p.routine.ReturnType, value.EntryType()),
			FaultGeneral)
	}
	p.c.Stack.Discard()
	return nil
}

// relOps maps relational tokens to their operators.
var relOps = map[TokenType]RelOp{
	EQUALS:     RelEq,
	NOT_EQ:     RelNe,
	LESS:       RelLt,
	GREATER:    RelGt,
	LESS_EQ:    RelLe,
	GREATER_EQ: RelGe,
}

func (p *Parser) parseCondition() *SyntaxError {
	if err := p.parseExpr(); err != nil {
		return err
	}
	op, ok := relOps[p.peek().Type]
	if !ok {
		return nil
	}
	p.advance()
	if err := p.parseExpr(); err != nil {
		return err
	}
	p.c.Stack.ProcessRelationalOp(op)
	return nil
}

// parseExpr handles + and -.
func (p *Parser) parseExpr() *SyntaxError {
	if err := p.parseTerm(); err != nil {
		return err
	}
	for p.peek().Type == PLUS || p.peek().Type == MINUS {
		tok := p.advance()
		if err := p.parseTerm(); err != nil {
			return err
		}
		op := OpAdd
		if tok.Type == MINUS {
			op = OpSub
		}
		p.c.Stack.ProcessBinaryOp(op, tok.Line)
	}
	return nil
}

// termOps maps multiplicative tokens to their operators.
var termOps = map[TokenType]BinaryOp{
	STAR:  OpMul,
	SLASH: OpDiv,
	MOD:   OpMod,
	DIV:   OpIntDiv,
}

// parseTerm handles *, /, MOD and DIV.
func (p *Parser) parseTerm() *SyntaxError {
	if err := p.parseUnary(); err != nil {
		return err
	}
	for {
		op, ok := termOps[p.peek().Type]
		if !ok {
			return nil
		}
		tok := p.advance()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.c.Stack.ProcessBinaryOp(op, tok.Line)
	}
}

// parseUnary handles NOT and unary minus.
func (p *Parser) parseUnary() *SyntaxError {
	switch p.peek().Type {
	case NOT:
		p.advance()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.c.Stack.ProcessUnaryOp(OpNot)
		return nil
	case MINUS:
		p.advance()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.c.Stack.ProcessUnaryOp(OpNeg)
		return nil
	}
	return p.parsePrimary()
}

// literalTypes maps literal tokens to the type they load as.
var literalTypes = map[TokenType]Type{
	INT_LIT:    TypeInt,
	REAL_LIT:   TypeReal,
	CHAR_LIT:   TypeChar,
	STRING_LIT: TypeString,
}

func (p *Parser) parsePrimary() *SyntaxError {
	tok := p.peek()
	if t, ok := literalTypes[tok.Type]; ok {
		p.advance()
		if err := p.c.Stack.LoadConstant(t, tok.Lexeme); err != nil {
			p.c.Errors.AddError(tok.Line, err.Error(), FaultGeneral)
		}
		return nil
	}
	switch tok.Type {
	case IDENTIFIER:
		p.advance()
		if p.peek().Type == LPAREN {
			return p.fmtError(tok, "calls to '%s' are not supported", tok.Lexeme)
		}
		p.c.Stack.LoadVariable(tok.Lexeme, tok.Line)
		return nil
	case LPAREN:
		p.advance()
		if err := p.parseExpr(); err != nil {
			return err
		}
		_, err := p.expect(RPAREN)
		return err
	}
	return p.fmtError(tok, "expected an expression, got %s (%q)", tok.Type, tok.Lexeme)
}

// Parse runs the semantic actions of c over an already lexed program and
// returns the syntax errors.
func Parse(tokens []Token, src string, c *Compilation) []*SyntaxError {
	return NewParser(tokens, src, c).Parse()
}
