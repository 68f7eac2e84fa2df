// Package parser implements a fault-tolerant recursive descent parser for the
// schema description language. Each grammar rule builds model objects directly;
// there is no intermediate syntax tree.
package parser

import (
	"errors"
	"fmt"
	"time"

	"github.com/tordrt/schemadsl/internal/diagnostic"
	"github.com/tordrt/schemadsl/internal/lexer"
	"github.com/tordrt/schemadsl/internal/schema"
)

// DefaultMaxErrors is the error count at which the declaration loop stops.
const DefaultMaxErrors = 100

// DefaultSyncSet is the set of tokens recovery skips forward to after a failed
// declaration, in addition to ';'.
var DefaultSyncSet = []lexer.TokenType{
	lexer.Table,
	lexer.Enum,
	lexer.Ref,
	lexer.Project,
	lexer.TableGroup,
}

// Options configures a parse.
type Options struct {
	// MaxErrors caps the errors recorded; later ones are dropped and the
	// declaration loop stops. Zero means DefaultMaxErrors.
	MaxErrors int

	// PriorErrors counts errors the caller already has, such as lexical ones,
	// against MaxErrors.
	PriorErrors int

	// Deadline aborts the parse with ErrTimeout once passed. Zero means no deadline.
	Deadline time.Time

	// Now overrides the clock used for the deadline check.
	Now func() time.Time

	// Strict reports unknown column constraints and settings as errors instead of warnings.
	Strict bool

	// SyncSet overrides DefaultSyncSet.
	SyncSet []lexer.TokenType
}

// Parser holds the cursor over a filtered token stream and the schema being built.
type Parser struct {
	tokens  []lexer.Token
	current int
	opts    Options
	guard   *guard
	syncSet map[lexer.TokenType]bool

	schema     *schema.Schema
	diags      []*diagnostic.ParseError
	errorCount int
}

// New creates a parser over tokens. Newline, whitespace, comment and illegal
// tokens are removed first; a missing EOF terminator is added.
func New(tokens []lexer.Token, opts Options) *Parser {
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultMaxErrors
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	filtered := lexer.Filter(tokens)
	if len(filtered) == 0 || filtered[len(filtered)-1].Type != lexer.EOF {
		var pos diagnostic.Position
		if len(filtered) > 0 {
			pos = filtered[len(filtered)-1].Pos
		}
		filtered = append(filtered, lexer.Token{Type: lexer.EOF, Pos: pos})
	}

	syncTypes := opts.SyncSet
	if syncTypes == nil {
		syncTypes = DefaultSyncSet
	}
	syncSet := make(map[lexer.TokenType]bool, len(syncTypes))
	for _, t := range syncTypes {
		syncSet[t] = true
	}

	return &Parser{
		tokens:  filtered,
		opts:    opts,
		guard:   newGuard(opts.Deadline, now),
		syncSet: syncSet,
		schema:  schema.New(schema.SourceDBML, now()),
		diags:   []*diagnostic.ParseError{},

		errorCount: opts.PriorErrors,
	}
}

// Parse parses a token list into a schema. Recoverable problems are returned as
// diagnostics. The error is non-nil only when parsing was aborted (ErrTimeout,
// ErrStuck or an internal failure); the schema is nil in that case.
func Parse(tokens []lexer.Token, opts Options) (*schema.Schema, []*diagnostic.ParseError, error) {
	return New(tokens, opts).Parse()
}

// Parse runs the parser. It never panics.
func (p *Parser) Parse() (s *schema.Schema, diags []*diagnostic.ParseError, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, diags, err = nil, p.diags, fmt.Errorf("internal parser error: %v", r)
		}
	}()

	if err := p.parseProgram(); err != nil {
		return nil, p.diags, err
	}
	return p.schema, p.diags, nil
}

// declaration is the result of one top-level construct.
type declaration interface {
	declaration()
}

type tableDecl struct {
	table         schema.Table
	indexes       []schema.Index
	relationships []schema.Relationship
}

type enumDecl struct{ schema.Enum }

type refDecl struct{ schema.Relationship }

type groupDecl struct{ schema.TableGroup }

type projectDecl struct {
	name         string
	note         *string
	databaseType string
}

func (*tableDecl) declaration()   {}
func (*enumDecl) declaration()    {}
func (*refDecl) declaration()     {}
func (*groupDecl) declaration()   {}
func (*projectDecl) declaration() {}

// parseProgram parses declarations until end of input or the error budget is spent.
// Every iteration consumes at least one token, so the token count bounds the loop.
func (p *Parser) parseProgram() error {
	return p.loop("declarations", len(p.tokens)+1, func() (bool, error) {
		if p.isAtEnd() || p.errorCount >= p.opts.MaxErrors {
			return true, nil
		}
		if p.match(lexer.Semicolon) {
			return false, nil
		}

		decl, err := p.parseDeclaration()
		if err != nil {
			var pe *diagnostic.ParseError
			if !errors.As(err, &pe) {
				return true, err
			}
			p.report(pe)
			return false, p.synchronize()
		}
		if decl != nil {
			p.merge(decl)
		}
		return false, nil
	})
}

// parseDeclaration dispatches on the leading keyword. An unrecognized token is
// reported and skipped on its own.
func (p *Parser) parseDeclaration() (declaration, error) {
	switch p.peek().Type {
	case lexer.Table:
		return p.parseTable()
	case lexer.Enum:
		return p.parseEnum()
	case lexer.Ref:
		return p.parseRef()
	case lexer.Project:
		return p.parseProject()
	case lexer.TableGroup:
		return p.parseTableGroup()
	}

	tok := p.advance()
	p.report(p.errorf(diagnostic.CodeUnexpectedToken, tok.Pos, "unexpected token %s, expected a declaration", describe(tok)))
	return nil, nil
}

func (p *Parser) merge(decl declaration) {
	s := p.schema
	switch d := decl.(type) {
	case *tableDecl:
		s.Tables = append(s.Tables, d.table)
		s.Indexes = append(s.Indexes, d.indexes...)
		s.Relationships = append(s.Relationships, d.relationships...)
	case *enumDecl:
		s.Enums = append(s.Enums, d.Enum)
	case *refDecl:
		s.Relationships = append(s.Relationships, d.Relationship)
	case *groupDecl:
		s.TableGroups = append(s.TableGroups, d.TableGroup)
	case *projectDecl:
		s.Name = d.name
		s.Description = d.note
		s.DatabaseType = d.databaseType
	}
}

// synchronize advances one token, then skips to just past the next ';' or to the
// next token in the sync set.
func (p *Parser) synchronize() error {
	p.advance()
	for !p.isAtEnd() {
		if err := p.guard.tick(); err != nil {
			return err
		}
		if p.match(lexer.Semicolon) {
			return nil
		}
		if p.syncSet[p.peek().Type] {
			return nil
		}
		p.advance()
	}
	return nil
}

// skipUntil advances until the current token is one of types or end of input.
func (p *Parser) skipUntil(types ...lexer.TokenType) error {
	for !p.isAtEnd() {
		if err := p.guard.tick(); err != nil {
			return err
		}
		for _, t := range types {
			if p.check(t) {
				return nil
			}
		}
		p.advance()
	}
	return nil
}

// recoverable records a recoverable parse error and lets the enclosing loop go on.
// Any other error stops the loop.
func (p *Parser) recoverable(err error) (bool, error) {
	var pe *diagnostic.ParseError
	if errors.As(err, &pe) {
		p.report(pe)
		return false, nil
	}
	return true, err
}

// Cursor helpers

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) peekAt(n int) lexer.Token {
	pos := p.current + n
	if pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.EOF
}

// expect consumes a token of type t or returns an EXPECTED_TOKEN error.
func (p *Parser) expect(t lexer.TokenType, what string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	tok := p.peek()
	return tok, p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected %s, got %s", what, describe(tok))
}

// Diagnostics helpers

func (p *Parser) errorf(code diagnostic.Code, pos diagnostic.Position, format string, args ...any) *diagnostic.ParseError {
	return diagnostic.Errorf(code, pos, format, args...)
}

func (p *Parser) report(d *diagnostic.ParseError) {
	if d.IsError() {
		if p.errorCount >= p.opts.MaxErrors {
			return
		}
		p.errorCount++
	}
	p.diags = append(p.diags, d)
}

// unknown reports an unrecognized setting and skips to the end of it.
func (p *Parser) unknown(code diagnostic.Code, tok lexer.Token, what string) error {
	msg := "unknown %s %s, ignored"
	if p.opts.Strict {
		p.report(diagnostic.Errorf(code, tok.Pos, msg, what, describe(tok)))
	} else {
		p.report(diagnostic.Warningf(code, tok.Pos, msg, what, describe(tok)))
	}
	p.advance()
	return p.skipUntil(lexer.Comma, lexer.RBracket, lexer.RBrace, lexer.LBrace)
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.EOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", tok.Raw)
}
