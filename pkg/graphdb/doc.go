// Package graphdb is the facade (C8) composing storage, indexes,
// constraints, cache, and transactions into the single entry point
// application code calls. It keeps all four subsystems consistent on
// every mutation per spec §4.2, the way the teacher's Manager composes
// store+fsm+tokenManager+eventBroker behind one constructor.
//
//	┌─────────────────────────── Database ───────────────────────────┐
//	│  engine storage.Engine   indexes *index.Manager                │
//	│  constraints *constraints.Manager   caches (node/adj/query/idx) │
//	│  txns *txn.Manager                                               │
//	└──────────────────────────────────────────────────────────────────┘
package graphdb
