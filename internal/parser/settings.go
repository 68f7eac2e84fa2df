package parser

import (
	"errors"
	"strings"

	"github.com/tordrt/schemadsl/internal/diagnostic"
	"github.com/tordrt/schemadsl/internal/lexer"
)

// isName reports whether tok can stand for a name. Keywords are allowed so that
// columns such as `key` or `note` parse; quoted strings are allowed for names with
// spaces or punctuation.
func isName(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.Identifier, lexer.String:
		return true
	}
	return tok.Type.IsKeyword()
}

// isKey reports whether tok is the unreserved setting key word.
func isKey(tok lexer.Token, word string) bool {
	return tok.Type == lexer.Identifier && strings.EqualFold(tok.Value, word)
}

// isNoteStart reports whether tok can follow the Note keyword in a note.
func isNoteStart(tok lexer.Token) bool {
	return tok.Type == lexer.Colon || tok.Type == lexer.LBrace
}

func (p *Parser) parseName(what string) (string, error) {
	tok := p.peek()
	if !isName(tok) {
		return "", p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected %s, got %s", what, describe(tok))
	}
	p.advance()
	return tok.Value, nil
}

// parseNamePath parses `a`, `a.b` or `a.b.c` into its segments.
func (p *Parser) parseNamePath(what string) ([]string, error) {
	first, err := p.parseName(what)
	if err != nil {
		return nil, err
	}
	segments := []string{first}

	err = p.loop(what, maxListIterations, func() (bool, error) {
		if !p.match(lexer.Dot) {
			return true, nil
		}
		name, err := p.parseName(what + " segment after '.'")
		if err != nil {
			return true, err
		}
		segments = append(segments, name)
		return false, nil
	})
	return segments, err
}

// parseQualifiedName parses a possibly schema-qualified name and joins it with '.'.
func (p *Parser) parseQualifiedName(what string) (string, error) {
	segments, err := p.parseNamePath(what)
	if err != nil {
		return "", err
	}
	return strings.Join(segments, "."), nil
}

// parseNote parses `Note: "text"` or `Note { "text" }` starting at the Note keyword.
func (p *Parser) parseNote() (string, error) {
	p.advance() // Note

	if p.match(lexer.LBrace) {
		tok, err := p.expect(lexer.String, "note text")
		if err != nil {
			return "", err
		}
		if _, err := p.expect(lexer.RBrace, "'}' to close note"); err != nil {
			return "", err
		}
		return tok.Value, nil
	}

	if _, err := p.expect(lexer.Colon, "':' after 'note'"); err != nil {
		return "", err
	}
	tok, err := p.expect(lexer.String, "note text")
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// parseSettingValue reads the value of a `key: value` setting.
func (p *Parser) parseSettingValue(what string) (string, error) {
	tok := p.peek()
	switch {
	case tok.Type == lexer.String, tok.Type == lexer.Color, tok.Type == lexer.Number, isName(tok):
		p.advance()
		return tok.Value, nil
	}
	return "", p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected %s, got %s", what, describe(tok))
}

// parseSettingList parses a bracketed, comma separated list starting at '['. item
// is called at the start of each entry and consumes it. A recoverable error in one
// entry is recorded and the list resumes at the next ',' or ']'.
func (p *Parser) parseSettingList(what string, item func(tok lexer.Token) error) error {
	p.advance() // [

	return p.loop(what, maxListIterations, func() (bool, error) {
		tok := p.peek()
		switch tok.Type {
		case lexer.RBracket:
			p.advance()
			return true, nil
		case lexer.Comma:
			// empty entry
			p.advance()
			return false, nil
		case lexer.EOF, lexer.LBrace, lexer.RBrace:
			p.report(p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected ']' to close %s, got %s", what, describe(tok)))
			return true, nil
		}

		if err := item(tok); err != nil {
			var pe *diagnostic.ParseError
			if !errors.As(err, &pe) {
				return true, err
			}
			p.report(pe)
			if err := p.skipUntil(lexer.Comma, lexer.RBracket, lexer.LBrace, lexer.RBrace); err != nil {
				return true, err
			}
		}
		// the separator belongs to the entry it follows
		if p.peek().Type == lexer.Comma {
			p.advance()
		}
		return false, nil
	})
}
