// Package values defines the tagged scalar variant and property map used
// throughout graphdb for node and relationship attributes.
//
// A Value is one of five variants: Int (signed 64-bit), Float (IEEE-754
// double), Bool, Text (UTF-8 string), or Null. Equality is structural and
// never crosses variants, except that Int and Float compare numerically
// with float semantics — Int(1) equals Float(1.0), while Int(1) never
// equals Text("1") or Bool(true). Ordering is total within a variant and,
// for ORDER BY only, total across variants: Null < Bool < numeric < Text.
package values
