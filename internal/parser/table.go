package parser

import (
	"strconv"
	"strings"

	"github.com/tordrt/schemadsl/internal/diagnostic"
	"github.com/tordrt/schemadsl/internal/lexer"
	"github.com/tordrt/schemadsl/internal/schema"
)

// parseTable parses `Table name [as alias] [settings] { body }`.
func (p *Parser) parseTable() (declaration, error) {
	p.advance() // Table

	if !isName(p.peek()) {
		tok := p.peek()
		return nil, p.errorf(diagnostic.CodeExpectedTableName, tok.Pos, "expected table name, got %s", describe(tok))
	}
	name, err := p.parseQualifiedName("table name")
	if err != nil {
		return nil, err
	}

	decl := &tableDecl{
		table: schema.Table{
			ID:      schema.NewID(),
			Name:    name,
			Columns: []schema.Column{},
		},
	}

	if p.match(lexer.As) {
		alias, err := p.parseName("table alias")
		if err != nil {
			return nil, err
		}
		decl.table.Alias = &alias
	}

	if p.check(lexer.LBracket) {
		if err := p.parseTableSettings(&decl.table); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(lexer.LBrace, "'{' to open table body"); err != nil {
		return nil, err
	}
	if err := p.parseTableBody(decl); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseTableSettings(table *schema.Table) error {
	return p.parseSettingList("table settings", func(tok lexer.Token) error {
		switch {
		case isKey(tok, "headercolor") && p.peekAt(1).Type == lexer.Colon:
			p.advance()
			p.advance()
			value, err := p.parseSettingValue("header color")
			if err != nil {
				return err
			}
			table.HeaderColor = &value
		case tok.Type == lexer.Note && p.peekAt(1).Type == lexer.Colon:
			note, err := p.parseNote()
			if err != nil {
				return err
			}
			table.Note = &note
		default:
			return p.unknown(diagnostic.CodeUnknownSetting, tok, "table setting")
		}
		return nil
	})
}

// parseTableBody reads columns, notes and index blocks until the closing brace.
// Problems inside the body are recorded and parsing continues with the next item.
func (p *Parser) parseTableBody(decl *tableDecl) error {
	return p.loop("table body", maxBodyIterations, func() (bool, error) {
		tok := p.peek()
		switch {
		case tok.Type == lexer.RBrace:
			p.advance()
			return true, nil

		case tok.Type == lexer.EOF:
			p.report(p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected '}' to close table %q, got end of input", decl.table.Name))
			return true, nil

		case tok.Type == lexer.Note && isNoteStart(p.peekAt(1)):
			note, err := p.parseNote()
			if err != nil {
				return p.recoverable(err)
			}
			decl.table.Note = &note

		case tok.Type == lexer.Indexes && p.peekAt(1).Type == lexer.LBrace:
			indexes, err := p.parseIndexes(decl.table.Name)
			decl.indexes = append(decl.indexes, indexes...)
			if err != nil {
				return true, err
			}

		case isName(tok):
			col, rels, err := p.parseColumn(decl.table.Name)
			if err != nil {
				return p.recoverable(err)
			}
			decl.table.Columns = append(decl.table.Columns, col)
			decl.relationships = append(decl.relationships, rels...)

		default:
			p.advance()
			p.report(p.errorf(diagnostic.CodeUnexpectedToken, tok.Pos, "unexpected token %s in table %q", describe(tok), decl.table.Name))
		}
		return false, nil
	})
}

// parseColumn parses `name type [constraints]`. Constraint problems are recorded
// without dropping the column.
func (p *Parser) parseColumn(tableName string) (schema.Column, []schema.Relationship, error) {
	name, err := p.parseName("column name")
	if err != nil {
		return schema.Column{}, nil, err
	}

	col := schema.Column{
		ID:       schema.NewID(),
		Name:     name,
		Nullable: true,
	}

	typ, err := p.parseColumnType()
	if err != nil {
		return col, nil, err
	}
	col.Type = typ

	var rels []schema.Relationship
	if p.check(lexer.LBracket) {
		rels, err = p.parseColumnConstraints(&col, tableName)
		if err != nil {
			return col, nil, err
		}
	}
	return col, rels, nil
}

// parseColumnType parses a type name with optional arguments and array marker.
func (p *Parser) parseColumnType() (schema.ColumnType, error) {
	var typ schema.ColumnType

	tok := p.peek()
	if !isName(tok) {
		return typ, p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected column type, got %s", describe(tok))
	}
	name, err := p.parseQualifiedName("column type")
	if err != nil {
		return typ, err
	}
	typ.Name = name

	if p.check(lexer.LParen) {
		if err := p.parseTypeArgs(&typ); err != nil {
			return typ, err
		}
	}

	if p.check(lexer.LBracket) && p.peekAt(1).Type == lexer.RBracket {
		p.advance()
		p.advance()
		typ.Name += "[]"
	}
	return typ, nil
}

// parseTypeArgs reads `(n)` or `(p, s)`. Arguments that are not plain integers are
// kept verbatim in the type name, e.g. varchar(max).
func (p *Parser) parseTypeArgs(typ *schema.ColumnType) error {
	p.advance() // (

	var args []lexer.Token
	err := p.loop("type arguments", maxListIterations, func() (bool, error) {
		tok := p.peek()
		switch tok.Type {
		case lexer.RParen:
			p.advance()
			return true, nil
		case lexer.Comma:
			p.advance()
			return false, nil
		case lexer.EOF, lexer.LBrace, lexer.RBrace, lexer.LBracket, lexer.RBracket:
			return true, p.errorf(diagnostic.CodeExpectedParen, tok.Pos, "expected ')' to close type arguments of %q, got %s", typ.Name, describe(tok))
		}
		args = append(args, p.advance())
		p.match(lexer.Comma)
		return false, nil
	})
	if err != nil {
		return err
	}

	ints := make([]int, 0, len(args))
	for _, arg := range args {
		if arg.Type != lexer.Number {
			break
		}
		n, err := strconv.Atoi(arg.Value)
		if err != nil {
			break
		}
		ints = append(ints, n)
	}

	switch {
	case len(args) == 1 && len(ints) == 1:
		typ.Size = &ints[0]
	case len(args) == 2 && len(ints) == 2:
		typ.Precision = &ints[0]
		typ.Scale = &ints[1]
	case len(args) > 0:
		raw := make([]string, len(args))
		for i, arg := range args {
			raw[i] = arg.Raw
		}
		typ.Name += "(" + strings.Join(raw, ",") + ")"
	}
	return nil
}

// parseColumnConstraints parses the bracketed constraint list after a column type.
// An inline ref yields a relationship from tableName.column.
func (p *Parser) parseColumnConstraints(col *schema.Column, tableName string) ([]schema.Relationship, error) {
	var rels []schema.Relationship
	err := p.parseSettingList("column settings", func(tok lexer.Token) error {
		switch {
		case tok.Type == lexer.PK:
			p.advance()
			col.PrimaryKey = true

		case tok.Type == lexer.Primary:
			p.advance()
			if _, err := p.expect(lexer.Key, "'key' after 'primary'"); err != nil {
				return err
			}
			col.PrimaryKey = true

		case tok.Type == lexer.Unique:
			p.advance()
			col.Unique = true

		case tok.Type == lexer.Not:
			p.advance()
			if _, err := p.expect(lexer.Null, "'null' after 'not'"); err != nil {
				return err
			}
			col.Nullable = false

		case tok.Type == lexer.Null:
			p.advance()
			col.Nullable = true

		case tok.Type == lexer.Increment || isKey(tok, "auto_increment"):
			p.advance()
			col.AutoIncrement = true

		case tok.Type == lexer.Default:
			p.advance()
			if _, err := p.expect(lexer.Colon, "':' after 'default'"); err != nil {
				return err
			}
			value, kind, err := p.parseDefaultValue()
			if err != nil {
				return err
			}
			col.DefaultValue = &value
			col.DefaultKind = kind

		case tok.Type == lexer.Note:
			note, err := p.parseNote()
			if err != nil {
				return err
			}
			col.Note = &note

		case tok.Type == lexer.Ref:
			p.advance()
			if _, err := p.expect(lexer.Colon, "':' after 'ref'"); err != nil {
				return err
			}
			relType := p.parseRelationOp()
			to, err := p.parseReference()
			if err != nil {
				return err
			}
			col.References = &to
			rels = append(rels, newRelationship(relType, schema.Reference{Table: tableName, Column: col.Name}, to))

		default:
			return p.unknown(diagnostic.CodeUnknownConstraint, tok, "column constraint")
		}
		return nil
	})
	return rels, err
}

// parseDefaultValue reads the value of a `default:` constraint.
func (p *Parser) parseDefaultValue() (string, schema.DefaultKind, error) {
	tok := p.peek()
	switch {
	case tok.Type == lexer.String:
		p.advance()
		if strings.HasPrefix(tok.Raw, "`") {
			return tok.Value, schema.DefaultExpression, nil
		}
		return tok.Value, schema.DefaultString, nil
	case tok.Type == lexer.Number:
		p.advance()
		return tok.Value, schema.DefaultNumber, nil
	case tok.Type == lexer.OneToOne && p.peekAt(1).Type == lexer.Number:
		p.advance()
		return "-" + p.advance().Value, schema.DefaultNumber, nil
	case tok.Type == lexer.Boolean:
		p.advance()
		return strings.ToLower(tok.Value), schema.DefaultBoolean, nil
	case tok.Type == lexer.Null:
		p.advance()
		return "null", schema.DefaultNull, nil
	case isName(tok):
		p.advance()
		return tok.Value, schema.DefaultIdentifier, nil
	}
	return "", "", p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected default value, got %s", describe(tok))
}

// parseIndexes parses an `indexes { ... }` block. It returns the indexes parsed so
// far together with any unrecoverable error.
func (p *Parser) parseIndexes(tableName string) ([]schema.Index, error) {
	p.advance() // indexes
	p.advance() // {

	var out []schema.Index
	err := p.loop("indexes block", maxBodyIterations, func() (bool, error) {
		tok := p.peek()
		switch tok.Type {
		case lexer.RBrace:
			p.advance()
			return true, nil
		case lexer.EOF:
			p.report(p.errorf(diagnostic.CodeExpectedToken, tok.Pos, "expected '}' to close indexes of %q, got end of input", tableName))
			return true, nil
		}

		idx, err := p.parseIndex(tableName)
		if err != nil {
			return p.recoverable(err)
		}
		out = append(out, idx)
		return false, nil
	})
	return out, err
}

// parseIndex parses one index entry: `(a, b) [settings]` or `a [settings]`.
func (p *Parser) parseIndex(tableName string) (schema.Index, error) {
	start := p.peek()
	idx := schema.Index{
		ID:        schema.NewID(),
		TableName: tableName,
		Columns:   []string{},
	}

	switch {
	case start.Type == lexer.LParen:
		p.advance()
		err := p.loop("index columns", maxListIterations, func() (bool, error) {
			tok := p.peek()
			switch {
			case tok.Type == lexer.RParen:
				p.advance()
				return true, nil
			case tok.Type == lexer.Comma:
				p.advance()
				return false, nil
			case isName(tok):
				p.advance()
				idx.Columns = append(idx.Columns, tok.Value)
				p.match(lexer.Comma)
				return false, nil
			}
			return true, p.errorf(diagnostic.CodeExpectedParen, tok.Pos, "expected ')' to close index columns, got %s", describe(tok))
		})
		if err != nil {
			return idx, err
		}
	case isName(start):
		p.advance()
		idx.Columns = append(idx.Columns, start.Value)
	default:
		return idx, p.errorf(diagnostic.CodeExpectedToken, start.Pos, "expected index column, got %s", describe(start))
	}

	if p.check(lexer.LBracket) {
		if err := p.parseIndexSettings(&idx); err != nil {
			return idx, err
		}
	}

	if len(idx.Columns) == 0 {
		return idx, p.errorf(diagnostic.CodeExpectedToken, start.Pos, "index on %q needs at least one column", tableName)
	}
	return idx, nil
}

func (p *Parser) parseIndexSettings(idx *schema.Index) error {
	return p.parseSettingList("index settings", func(tok lexer.Token) error {
		switch {
		case tok.Type == lexer.Unique:
			p.advance()
			idx.Unique = true

		case tok.Type == lexer.PK:
			p.advance()
			primary := "primary"
			idx.Unique = true
			idx.Type = &primary

		case isKey(tok, "name") && p.peekAt(1).Type == lexer.Colon:
			p.advance()
			p.advance()
			name, err := p.parseSettingValue("index name")
			if err != nil {
				return err
			}
			idx.Name = name

		case isKey(tok, "type") && p.peekAt(1).Type == lexer.Colon:
			p.advance()
			p.advance()
			typ, err := p.parseSettingValue("index type")
			if err != nil {
				return err
			}
			idx.Type = &typ

		case tok.Type == lexer.Note && p.peekAt(1).Type == lexer.Colon:
			note, err := p.parseNote()
			if err != nil {
				return err
			}
			idx.Note = &note

		default:
			p.advance()
			typ := tok.Value
			idx.Type = &typ
		}
		return nil
	})
}
