package cypher

import "github.com/alecthomas/participle/v2/lexer"

// cypherLexer tokenizes query text. Rule order matters: more specific
// patterns (Keyword, Float before Int, multi-char Op before single-char
// Punct) must come first so the simple lexer doesn't shadow them.
var cypherLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(MATCH|OPTIONAL|WHERE|WITH|RETURN|CREATE|MERGE|ON|SET|DELETE|DETACH|IN|UNION|ALL|AS|ORDER|BY|ASC|DESC|SKIP|LIMIT|DISTINCT|AND|OR|NOT|IS|NULL|EXISTS|TRUE|FALSE|BEGIN|START|TRANSACTION|COMMIT|ROLLBACK|COUNT|SUM|AVG|MIN|MAX|COLLECT|STDEV|PERCENTILECONT|PERCENTILEDISC|FOREACH|CALL)\b`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `'([^'\\]|\\.)*'`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Op", Pattern: `<>|<=|>=|=~|=|<|>`},
	{Name: "DotDot", Pattern: `\.\.`},
	{Name: "Punct", Pattern: `[(),{}\[\]:.\-|*!]`},
	{Name: "Whitespace", Pattern: `\s+`},
})
