// Package lexer implements tokenization for the schema description language.
package lexer

import (
	"strings"

	"github.com/tordrt/schemadsl/internal/diagnostic"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	Illegal
	Whitespace
	Newline
	LineComment
	BlockComment

	// Literals
	Identifier
	String
	Number
	Boolean
	Null
	Color

	// Keywords
	Table
	Enum
	Ref
	Project
	Indexes
	TableGroup
	Note
	As
	PK
	Primary
	Key
	Unique
	Not
	Increment
	Default
	TypeName

	// Punctuation
	LBrace
	RBrace
	LBracket
	RBracket
	LParen
	RParen
	Comma
	Colon
	Semicolon
	Dot

	// Relationship operators
	OneToOne   // -
	OneToMany  // >
	ManyToOne  // <
	ManyToMany // <>
)

var tokenNames = map[TokenType]string{
	EOF:          "EOF",
	Illegal:      "ILLEGAL",
	Whitespace:   "WHITESPACE",
	Newline:      "NEWLINE",
	LineComment:  "LINE_COMMENT",
	BlockComment: "BLOCK_COMMENT",
	Identifier:   "IDENTIFIER",
	String:       "STRING",
	Number:       "NUMBER",
	Boolean:      "BOOLEAN",
	Null:         "NULL",
	Color:        "COLOR",
	Table:        "TABLE",
	Enum:         "ENUM",
	Ref:          "REF",
	Project:      "PROJECT",
	Indexes:      "INDEXES",
	TableGroup:   "TABLEGROUP",
	Note:         "NOTE",
	As:           "AS",
	PK:           "PK",
	Primary:      "PRIMARY",
	Key:          "KEY",
	Unique:       "UNIQUE",
	Not:          "NOT",
	Increment:    "INCREMENT",
	Default:      "DEFAULT",
	TypeName:     "TYPE_NAME",
	LBrace:       "LBRACE",
	RBrace:       "RBRACE",
	LBracket:     "LBRACKET",
	RBracket:     "RBRACKET",
	LParen:       "LPAREN",
	RParen:       "RPAREN",
	Comma:        "COMMA",
	Colon:        "COLON",
	Semicolon:    "SEMICOLON",
	Dot:          "DOT",
	OneToOne:     "ONE_TO_ONE",
	OneToMany:    "ONE_TO_MANY",
	ManyToOne:    "MANY_TO_ONE",
	ManyToMany:   "MANY_TO_MANY",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText renders the token type by name in JSON and YAML output.
func (t TokenType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Token is a single lexical unit. Raw is the exact source slice; Value is the
// interpreted text (unescaped string body, comment body, identifier as written).
type Token struct {
	Type  TokenType           `json:"type" yaml:"type"`
	Value string              `json:"value" yaml:"value"`
	Raw   string              `json:"raw" yaml:"raw"`
	Pos   diagnostic.Position `json:"position" yaml:"position"`
}

// IsKeyword reports whether the token type comes from the keyword table.
func (t TokenType) IsKeyword() bool {
	return t >= Table && t <= TypeName
}

// IsRelationOp reports whether the token is one of the relationship operators.
func (t TokenType) IsRelationOp() bool {
	return t >= OneToOne && t <= ManyToMany
}

// IsComment reports whether the token is a line or block comment.
func (t TokenType) IsComment() bool {
	return t == LineComment || t == BlockComment
}

// keywords maps lowercase keyword text to its token type. It is never mutated.
var keywords = map[string]TokenType{
	"table":      Table,
	"enum":       Enum,
	"ref":        Ref,
	"project":    Project,
	"indexes":    Indexes,
	"tablegroup": TableGroup,
	"note":       Note,
	"as":         As,
	"pk":         PK,
	"primary":    Primary,
	"key":        Key,
	"unique":     Unique,
	"not":        Not,
	"increment":  Increment,
	"default":    Default,
	"true":       Boolean,
	"false":      Boolean,
	"null":       Null,

	// Type names
	"int":         TypeName,
	"integer":     TypeName,
	"bigint":      TypeName,
	"smallint":    TypeName,
	"tinyint":     TypeName,
	"serial":      TypeName,
	"bigserial":   TypeName,
	"varchar":     TypeName,
	"char":        TypeName,
	"text":        TypeName,
	"boolean":     TypeName,
	"bool":        TypeName,
	"date":        TypeName,
	"datetime":    TypeName,
	"time":        TypeName,
	"timestamp":   TypeName,
	"timestamptz": TypeName,
	"decimal":     TypeName,
	"numeric":     TypeName,
	"float":       TypeName,
	"double":      TypeName,
	"real":        TypeName,
	"json":        TypeName,
	"jsonb":       TypeName,
	"uuid":        TypeName,
	"blob":        TypeName,
	"bytea":       TypeName,
}

// LookupKeyword returns the keyword token type for an identifier, matched
// case-insensitively, or Identifier when the word is not reserved.
func LookupKeyword(word string) TokenType {
	if t, ok := keywords[strings.ToLower(word)]; ok {
		return t
	}
	return Identifier
}

// Filter drops the tokens the parser never looks at: whitespace, newlines,
// comments and illegal characters (already reported by the lexer).
func Filter(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.Type {
		case Whitespace, Newline, LineComment, BlockComment, Illegal:
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Comments returns the comment tokens in source order.
func Comments(tokens []Token) []Token {
	var out []Token
	for _, tok := range tokens {
		if tok.Type.IsComment() {
			out = append(out, tok)
		}
	}
	return out
}
