package cypher

// Statement is the top-level parse result: either a transaction control
// statement or a (possibly UNION'd) query.
type Statement struct {
	Tx    *TxStatement    `parser:"  @@"`
	Query *QueryStatement `parser:"| @@"`
}

// TxStatement is BEGIN|START, COMMIT, or ROLLBACK, each with an optional
// trailing TRANSACTION keyword (spec §4.7).
type TxStatement struct {
	Kind string `parser:"@(\"BEGIN\"|\"START\"|\"COMMIT\"|\"ROLLBACK\") ( \"TRANSACTION\" )?"`
}

// QueryStatement is a query optionally followed by UNION/UNION ALL parts.
type QueryStatement struct {
	First  *Query       `parser:"@@"`
	Unions []*UnionPart `parser:"@@*"`
}

// UnionPart is one `UNION [ALL] <query>` continuation.
type UnionPart struct {
	All   bool   `parser:"\"UNION\" ( @\"ALL\" )?"`
	Query *Query `parser:"@@"`
}

// Query is a sequence of clauses executed in order against a running
// binding environment.
type Query struct {
	Clauses []*Clause `parser:"@@+"`
}

// Clause dispatches on the clause's leading keyword. Exactly one field
// is non-nil after a successful parse.
type Clause struct {
	Match   *MatchClause   `parser:"  @@"`
	Where   *WhereClause   `parser:"| @@"`
	With    *WithClause    `parser:"| @@"`
	Return  *ReturnClause  `parser:"| @@"`
	Create  *CreateClause  `parser:"| @@"`
	Merge   *MergeClause   `parser:"| @@"`
	Delete  *DeleteClause  `parser:"| @@"`
	Set     *SetClause     `parser:"| @@"`
	Foreach *ForeachClause `parser:"| @@"`
	Call    *CallClause    `parser:"| @@"`
}

// MatchClause is `[OPTIONAL] MATCH pattern (, pattern)*`.
type MatchClause struct {
	Optional bool       `parser:"( @\"OPTIONAL\" )? \"MATCH\""`
	Patterns []*Pattern `parser:"@@ ( \",\" @@ )*"`
}

// WhereClause filters the bindings produced by the preceding clause.
type WhereClause struct {
	Expr *Expr `parser:"\"WHERE\" @@"`
}

// WithClause projects and re-binds variables for downstream clauses.
type WithClause struct {
	Distinct bool        `parser:"\"WITH\" ( @\"DISTINCT\" )?"`
	Items    []*ProjItem `parser:"@@ ( \",\" @@ )*"`
	OrderBy  *OrderByPart `parser:"@@?"`
	Skip     *int64      `parser:"( \"SKIP\" @Int )?"`
	Limit    *int64      `parser:"( \"LIMIT\" @Int )?"`
}

// ReturnClause is the terminal projection clause.
type ReturnClause struct {
	Distinct bool         `parser:"\"RETURN\" ( @\"DISTINCT\" )?"`
	Items    []*ProjItem  `parser:"@@ ( \",\" @@ )*"`
	OrderBy  *OrderByPart `parser:"@@?"`
	Skip     *int64       `parser:"( \"SKIP\" @Int )?"`
	Limit    *int64       `parser:"( \"LIMIT\" @Int )?"`
}

// ProjItem is one RETURN/WITH projection expression, with an optional alias.
type ProjItem struct {
	Expr  *ValueExpr `parser:"@@"`
	Alias *string    `parser:"( \"AS\" @Ident )?"`
}

// OrderByPart is `ORDER BY item (, item)*`.
type OrderByPart struct {
	Items []*OrderItem `parser:"\"ORDER\" \"BY\" @@ ( \",\" @@ )*"`
}

// OrderItem is one ORDER BY expression with optional ASC/DESC.
type OrderItem struct {
	Expr *ValueExpr `parser:"@@"`
	Desc bool       `parser:"( @\"DESC\" | \"ASC\" )?"`
}

// CreateClause creates the listed patterns unconditionally.
type CreateClause struct {
	Patterns []*Pattern `parser:"\"CREATE\" @@ ( \",\" @@ )*"`
}

// MergeClause matches pattern if it already exists, else creates it,
// then runs ON CREATE SET or ON MATCH SET depending on which happened.
type MergeClause struct {
	Pattern  *Pattern   `parser:"\"MERGE\" @@"`
	OnCreate []*SetItem `parser:"( \"ON\" \"CREATE\" \"SET\" @@ ( \",\" @@ )* )?"`
	OnMatch  []*SetItem `parser:"( \"ON\" \"MATCH\" \"SET\" @@ ( \",\" @@ )* )?"`
}

// DeleteClause deletes the named variables; DETACH also removes any
// incident relationships (the facade already cascades, so DETACH is
// accepted but has no separate effect beyond DELETE).
type DeleteClause struct {
	Detach bool     `parser:"( @\"DETACH\" )? \"DELETE\""`
	Vars   []string `parser:"@Ident ( \",\" @Ident )*"`
}

// SetClause applies a list of property assignments.
type SetClause struct {
	Items []*SetItem `parser:"\"SET\" @@ ( \",\" @@ )*"`
}

// SetItem is `var.prop = expr`.
type SetItem struct {
	Var  string     `parser:"@Ident \".\""`
	Prop string     `parser:"@Ident \"=\""`
	Expr *ValueExpr `parser:"@@"`
}

// ForeachClause is `FOREACH ( var IN [list] | updates )`. The list is a
// bracketed expression list (spec §4.7); updates is one or more updating
// clauses run once per loop iteration with var bound.
type ForeachClause struct {
	Var     string       `parser:"\"FOREACH\" \"(\" @Ident \"IN\""`
	List    []*ValueExpr `parser:"\"[\" ( @@ ( \",\" @@ )* )? \"]\" \"|\""`
	Updates []*Clause    `parser:"@@+ \")\""`
}

// CallClause is `CALL { subquery } [IN (vars)]`. The subquery runs once
// per incoming row against a fresh binding environment; InputVars is
// parsed but (matching the reference implementation) does not yet scope
// which outer bindings the subquery can see.
type CallClause struct {
	Body      *Query   `parser:"\"CALL\" \"{\" @@ \"}\""`
	InputVars []string `parser:"( \"IN\" \"(\" @Ident ( \",\" @Ident )* \")\" )?"`
}

// Pattern is a chain: node, then zero or more (relationship, node) steps.
type Pattern struct {
	Start *NodePattern   `parser:"@@"`
	Steps []*PatternStep `parser:"@@*"`
}

// PatternStep is one hop of a pattern chain.
type PatternStep struct {
	Rel  *RelPattern  `parser:"@@"`
	Node *NodePattern `parser:"@@"`
}

// NodePattern is `(var? :Label* {prop: value, ...}?)`.
type NodePattern struct {
	Var    string      `parser:"\"(\" ( @Ident )?"`
	Labels []string    `parser:"( \":\" @Ident )*"`
	Props  []*PropPair `parser:"( \"{\" ( @@ ( \",\" @@ )* )? \"}\" )? \")\""`
}

// PropPair is one `key: literal` entry in a pattern's property map.
type PropPair struct {
	Key   string   `parser:"@Ident \":\""`
	Value *Literal `parser:"@@"`
}

// RelPattern is `[<]-[ [var] [:Type(|Type)*] [*min[..max]] ]-[>]`. Every
// bracket body segment is optional, so a bare `--`/`-->`/`<--` (anonymous,
// any type, single hop) parses too.
type RelPattern struct {
	Left    bool     `parser:"@\"<\"? \"-\""`
	Var     string   `parser:"( \"[\" ( @Ident )?"`
	Types   []string `parser:"( \":\" @Ident ( \"|\" @Ident )* )?"`
	VarLen  bool     `parser:"( @\"*\""`
	MinHops *int64   `parser:"( @Int )?"`
	Range   bool     `parser:"( @\"..\""`
	MaxHops *int64   `parser:"( @Int )? )? )? )?"`
	Closed  bool     `parser:"\"]\" )? \"-\""`
	Right   bool     `parser:"@\">\"?"`
}

// Expr is the OR level of the WHERE/boolean expression grammar.
type Expr struct {
	Left *AndExpr `parser:"@@"`
	Rest []*OrRHS `parser:"@@*"`
}

// OrRHS is one `OR <and-expr>` continuation.
type OrRHS struct {
	Right *AndExpr `parser:"\"OR\" @@"`
}

// AndExpr is the AND level, above NOT/comparison.
type AndExpr struct {
	Left *NotExpr  `parser:"@@"`
	Rest []*AndRHS `parser:"@@*"`
}

// AndRHS is one `AND <not-expr>` continuation.
type AndRHS struct {
	Right *NotExpr `parser:"\"AND\" @@"`
}

// NotExpr is an optionally-negated predicate.
type NotExpr struct {
	Not  bool       `parser:"( @\"NOT\" )?"`
	Atom *Predicate `parser:"@@"`
}

// Predicate is a parenthesized sub-expression, an EXISTS(...) test, or a
// value comparison.
type Predicate struct {
	Paren   *Expr        `parser:"  \"(\" @@ \")\""`
	Exists  *ExistsPred  `parser:"| @@"`
	Compare *CompareExpr `parser:"| @@"`
}

// ExistsPred is `EXISTS(expr)`, true iff expr resolves to a non-null value.
type ExistsPred struct {
	Target *ValueExpr `parser:"\"EXISTS\" \"(\" @@ \")\""`
}

// CompareExpr is a value optionally followed by a comparison/IN/IS
// NULL/regex tail.
type CompareExpr struct {
	Left *ValueExpr `parser:"@@"`
	Tail *Tail      `parser:"@@?"`
}

// Tail dispatches on which kind of comparison follows a value.
type Tail struct {
	Cmp    *CmpTail    `parser:"  @@"`
	InList *InTail     `parser:"| @@"`
	IsNull *IsNullTail `parser:"| @@"`
	Regex  *RegexTail  `parser:"| @@"`
}

// CmpTail is `<op> value` for =, <>, <, <=, >, >=.
type CmpTail struct {
	Op    string     `parser:"@(\"<>\"|\"<=\"|\">=\"|\"=\"|\"<\"|\">\")"`
	Right *ValueExpr `parser:"@@"`
}

// InTail is `IN [v1, v2, ...]`.
type InTail struct {
	List []*ValueExpr `parser:"\"IN\" \"[\" ( @@ ( \",\" @@ )* )? \"]\""`
}

// IsNullTail is `IS [NOT] NULL`.
type IsNullTail struct {
	Not bool `parser:"\"IS\" ( @\"NOT\" )? \"NULL\""`
}

// RegexTail is `=~ 'pattern'`, anchored over the full value (spec §4.7).
type RegexTail struct {
	Pattern string `parser:"\"=~\" @String"`
}

// ValueExpr is an operand: an aggregation call, a property access, a
// literal, or a bare variable reference.
type ValueExpr struct {
	FuncCall *FuncCall   `parser:"  @@"`
	PropAcc  *PropAccess `parser:"| @@"`
	Literal  *Literal    `parser:"| @@"`
	Var      string      `parser:"| @Ident"`
}

// PropAccess is `var.prop`.
type PropAccess struct {
	Var  string `parser:"@Ident \".\""`
	Prop string `parser:"@Ident"`
}

// FuncCall is an aggregation function invocation.
type FuncCall struct {
	Name string    `parser:"@(\"COUNT\"|\"SUM\"|\"AVG\"|\"MIN\"|\"MAX\"|\"COLLECT\"|\"STDEV\"|\"PERCENTILECONT\"|\"PERCENTILEDISC\")"`
	Call *CallArgs `parser:"@@"`
}

// CallArgs is the `(DISTINCT? *|args)` portion of a function call.
type CallArgs struct {
	Distinct bool         `parser:"\"(\" ( @\"DISTINCT\" )?"`
	Star     bool         `parser:"( @\"*\""`
	Args     []*ValueExpr `parser:"| ( @@ ( \",\" @@ )* )? ) \")\""`
}

// Literal is a constant value: string, float, int, bool, or null.
type Literal struct {
	Str   *string  `parser:"  @String"`
	Flt   *float64 `parser:"| @Float"`
	Int   *int64   `parser:"| @Int"`
	True  bool     `parser:"| @\"TRUE\""`
	False bool     `parser:"| @\"FALSE\""`
	Null  bool     `parser:"| @\"NULL\""`
}
