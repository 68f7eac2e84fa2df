package parser

import (
	"strings"

	"github.com/tordrt/schemadsl/internal/diagnostic"
	"github.com/tordrt/schemadsl/internal/lexer"
	"github.com/tordrt/schemadsl/internal/schema"
)

// relationTypes maps relationship operator tokens to relationship types.
var relationTypes = map[lexer.TokenType]string{
	lexer.OneToOne:   schema.OneToOne,
	lexer.OneToMany:  schema.OneToMany,
	lexer.ManyToOne:  schema.ManyToOne,
	lexer.ManyToMany: schema.ManyToMany,
}

// parseRef parses the short form `Ref [name]: from op to [settings]` and the
// block form `Ref [name] { from op to [settings] }`.
func (p *Parser) parseRef() (declaration, error) {
	p.advance() // Ref

	var name *string
	if next := p.peekAt(1).Type; isName(p.peek()) && (next == lexer.Colon || next == lexer.LBrace) {
		n := p.advance().Value
		name = &n
	}
	p.match(lexer.Colon)
	block := p.match(lexer.LBrace)

	from, err := p.parseReference()
	if err != nil {
		return nil, err
	}
	relType := p.parseRelationOp()
	to, err := p.parseReference()
	if err != nil {
		return nil, err
	}

	rel := newRelationship(relType, from, to)
	rel.Name = name

	if p.check(lexer.LBracket) {
		if err := p.parseRefSettings(&rel); err != nil {
			return nil, err
		}
	}
	if block {
		if _, err := p.expect(lexer.RBrace, "'}' to close ref"); err != nil {
			return nil, err
		}
	}
	return &refDecl{rel}, nil
}

// parseRefSettings reads `[delete: cascade, update: set null, note: "..."]`.
func (p *Parser) parseRefSettings(rel *schema.Relationship) error {
	return p.parseSettingList("ref settings", func(tok lexer.Token) error {
		switch {
		case isKey(tok, "delete") && p.peekAt(1).Type == lexer.Colon:
			p.advance()
			p.advance()
			action, err := p.parseAction()
			if err != nil {
				return err
			}
			rel.OnDelete = &action

		case isKey(tok, "update") && p.peekAt(1).Type == lexer.Colon:
			p.advance()
			p.advance()
			action, err := p.parseAction()
			if err != nil {
				return err
			}
			rel.OnUpdate = &action

		case tok.Type == lexer.Note && p.peekAt(1).Type == lexer.Colon:
			note, err := p.parseNote()
			if err != nil {
				return err
			}
			rel.Note = &note

		default:
			return p.unknown(diagnostic.CodeUnknownSetting, tok, "ref setting")
		}
		return nil
	})
}

// parseAction reads a referential action such as `cascade` or `set null`.
func (p *Parser) parseAction() (string, error) {
	var words []string
	err := p.loop("referential action", maxListIterations, func() (bool, error) {
		tok := p.peek()
		if !isName(tok) && tok.Type != lexer.Null {
			return true, nil
		}
		p.advance()
		words = append(words, strings.ToLower(tok.Value))
		return false, nil
	})
	if err != nil {
		return "", err
	}
	if len(words) == 0 {
		tok := p.peek()
		return "", p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected referential action, got %s", describe(tok))
	}
	return strings.Join(words, " "), nil
}

// parseRelationOp consumes a relationship operator if present. Without one the
// relationship is one-to-many.
func (p *Parser) parseRelationOp() string {
	if relType, ok := relationTypes[p.peek().Type]; ok {
		p.advance()
		return relType
	}
	return schema.OneToMany
}

// parseReference parses `table.column` or `schema.table.column`. A bare name
// yields a reference with an empty table.
func (p *Parser) parseReference() (schema.Reference, error) {
	segments, err := p.parseNamePath("reference")
	if err != nil {
		return schema.Reference{}, err
	}
	last := len(segments) - 1
	return schema.Reference{
		Table:  strings.Join(segments[:last], "."),
		Column: segments[last],
	}, nil
}

func newRelationship(relType string, from, to schema.Reference) schema.Relationship {
	return schema.Relationship{
		ID:               schema.NewID(),
		RelationshipType: relType,
		FromTable:        from.Table,
		FromColumn:       from.Column,
		ToTable:          to.Table,
		ToColumn:         to.Column,
		Cardinality:      schema.Cardinality(relType),
	}
}
