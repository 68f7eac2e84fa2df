package parser

import (
	"strings"

	"github.com/tordrt/schemadsl/internal/diagnostic"
	"github.com/tordrt/schemadsl/internal/lexer"
	"github.com/tordrt/schemadsl/internal/schema"
)

// parseEnum parses `Enum [schema.]name { value [note: "..."] ... }`.
func (p *Parser) parseEnum() (declaration, error) {
	p.advance() // Enum

	name, err := p.parseQualifiedName("enum name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace, "'{' to open enum body"); err != nil {
		return nil, err
	}

	enum := schema.Enum{
		ID:     schema.NewID(),
		Name:   name,
		Values: []schema.EnumValue{},
	}

	err = p.loop("enum body", maxBodyIterations, func() (bool, error) {
		tok := p.peek()
		switch {
		case tok.Type == lexer.RBrace:
			p.advance()
			return true, nil

		case tok.Type == lexer.EOF:
			p.report(p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected '}' to close enum %q, got end of input", name))
			return true, nil

		case tok.Type == lexer.Note && isNoteStart(p.peekAt(1)):
			note, err := p.parseNote()
			if err != nil {
				return p.recoverable(err)
			}
			enum.Note = &note

		case isName(tok):
			p.advance()
			value := schema.EnumValue{Name: tok.Value}
			if p.check(lexer.LBracket) {
				if err := p.parseEnumValueSettings(&value); err != nil {
					return true, err
				}
			}
			enum.Values = append(enum.Values, value)

		default:
			p.advance()
			p.report(p.errorf(diagnostic.CodeUnexpectedToken, tok.Pos, "unexpected token %s in enum %q", describe(tok), name))
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return &enumDecl{enum}, nil
}

func (p *Parser) parseEnumValueSettings(value *schema.EnumValue) error {
	return p.parseSettingList("enum value settings", func(tok lexer.Token) error {
		if tok.Type == lexer.Note && p.peekAt(1).Type == lexer.Colon {
			note, err := p.parseNote()
			if err != nil {
				return err
			}
			value.Note = &note
			return nil
		}
		return p.unknown(diagnostic.CodeUnknownSetting, tok, "enum value setting")
	})
}

// parseTableGroup parses `TableGroup name [settings] { table ... }`.
func (p *Parser) parseTableGroup() (declaration, error) {
	p.advance() // TableGroup

	name, err := p.parseQualifiedName("table group name")
	if err != nil {
		return nil, err
	}

	group := schema.TableGroup{
		ID:     schema.NewID(),
		Name:   name,
		Tables: []string{},
	}

	if p.check(lexer.LBracket) {
		err := p.parseSettingList("table group settings", func(tok lexer.Token) error {
			switch {
			case isKey(tok, "color") && p.peekAt(1).Type == lexer.Colon:
				p.advance()
				p.advance()
				color, err := p.parseSettingValue("group color")
				if err != nil {
					return err
				}
				group.Color = &color
			case tok.Type == lexer.Note && p.peekAt(1).Type == lexer.Colon:
				note, err := p.parseNote()
				if err != nil {
					return err
				}
				group.Note = &note
			default:
				return p.unknown(diagnostic.CodeUnknownSetting, tok, "table group setting")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(lexer.LBrace, "'{' to open table group"); err != nil {
		return nil, err
	}

	err = p.loop("table group body", maxBodyIterations, func() (bool, error) {
		tok := p.peek()
		switch {
		case tok.Type == lexer.RBrace:
			p.advance()
			return true, nil

		case tok.Type == lexer.EOF:
			p.report(p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected '}' to close table group %q, got end of input", name))
			return true, nil

		case tok.Type == lexer.Note && isNoteStart(p.peekAt(1)):
			note, err := p.parseNote()
			if err != nil {
				return p.recoverable(err)
			}
			group.Note = &note

		case isName(tok):
			table, err := p.parseQualifiedName("table name")
			if err != nil {
				return p.recoverable(err)
			}
			group.Tables = append(group.Tables, table)

		case tok.Type == lexer.Comma:
			p.advance()

		default:
			p.advance()
			p.report(p.errorf(diagnostic.CodeUnexpectedToken, tok.Pos, "unexpected token %s in table group %q", describe(tok), name))
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return &groupDecl{group}, nil
}

// parseProject parses `Project [name] { key: value ... Note: "..." }`.
func (p *Parser) parseProject() (declaration, error) {
	p.advance() // Project

	decl := &projectDecl{}
	if isName(p.peek()) {
		name, err := p.parseName("project name")
		if err != nil {
			return nil, err
		}
		decl.name = name
	}
	if _, err := p.expect(lexer.LBrace, "'{' to open project"); err != nil {
		return nil, err
	}

	err := p.loop("project body", maxBodyIterations, func() (bool, error) {
		tok := p.peek()
		switch {
		case tok.Type == lexer.RBrace:
			p.advance()
			return true, nil

		case tok.Type == lexer.EOF:
			p.report(p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected '}' to close project, got end of input"))
			return true, nil

		case tok.Type == lexer.Note && isNoteStart(p.peekAt(1)):
			note, err := p.parseNote()
			if err != nil {
				return p.recoverable(err)
			}
			decl.note = &note

		case isName(tok) && p.peekAt(1).Type == lexer.Colon:
			p.advance()
			p.advance()
			value, err := p.parseSettingValue("project setting value")
			if err != nil {
				return p.recoverable(err)
			}
			if strings.EqualFold(tok.Value, "database_type") {
				decl.databaseType = value
			}

		default:
			p.advance()
			p.report(p.errorf(diagnostic.CodeUnexpectedToken, tok.Pos, "unexpected token %s in project", describe(tok)))
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return decl, nil
}
