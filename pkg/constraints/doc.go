// Package constraints holds the uniqueness and existence constraint
// registry (spec §4.4). A constraint does not by itself block a
// mutation: the facade calls Validate during its own mutation path and
// escalates a Violated verdict into a hard error.
package constraints
