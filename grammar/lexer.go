package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ColaLexer tokenizes CoLa-light surface syntax: comments, identifiers
// (keywords are matched as literal text against Ident tokens rather than
// their own rules — "interface"/"macro"/"shared" are just Ident values the
// grammar checks), relational/logical operators, and punctuation.
var ColaLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `[0-9]+`, nil},
		{"Operator", `(\|\||&&|==|!=|<=|>=|[<>!=])`, nil},
		{"Punctuation", `[{}()<>.,;:|]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
