package cypher

import "github.com/alecthomas/participle/v2"

var cypherParser = participle.MustBuild[Statement](
	participle.Lexer(cypherLexer),
	participle.CaseInsensitive("Keyword"),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse lexes and parses a single Cypher-like statement into its AST.
func Parse(query string) (*Statement, error) {
	return cypherParser.ParseString("", query)
}
