// Package entitystore implements the polymorphic content-storage layer of a
// social web platform. Every stored item is an Entity spanning a base row in
// the entities table plus a type-specific extension row; entities are linked
// by directed, uniquely-keyed Relationships and annotated with Annotations and
// Metadata sharing a common extender row shape.
//
// The package exposes a Service assembled with functional options:
//
//	svc, err := entitystore.New(
//	    entitystore.WithDatabase(db),
//	    entitystore.WithDispatcher(events),
//	)
//
// All persistence goes through the narrow Database gateway interface; the
// sqldb subpackage provides implementations for SQLite and PostgreSQL. Every
// create/update/delete is wrapped by synchronous lifecycle events that
// registered handlers may veto.
package entitystore
