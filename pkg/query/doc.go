// Package query implements the fluent pipeline (C9): a chain of builder
// calls threading an opaque working set of node ids through seed,
// filter, and traversal steps, resolved by a terminal call. The working
// set holds bare ids: skip/limit/distinct only slice the id list and
// fetch nothing, while where_* filters and order_by fetch each node
// record and hops fetch relationship records.
package query
