// Package query defines a small predicate IR over instance property
// bags, with two backends: a SQL compiler targeting the SQLite
// instances table and a direct evaluator for in-memory stores.
//
// The predicate set is deliberately tiny (equality and conjunction) so
// both backends stay trivially equivalent. Anything richer belongs in
// application code iterating over GetAll.
package query
