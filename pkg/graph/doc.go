// Package graph defines the two entity kinds the engine stores: Node and
// Relationship. Both carry a monotonic 64-bit id (nodes and relationships
// draw from separate id spaces), arbitrary properties, and type-specific
// identity: a node carries an ordered, duplicate-free set of labels; a
// relationship carries a single type string plus the ids of the nodes it
// connects.
package graph
