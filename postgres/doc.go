// Package postgres implements the authcore store interfaces on top of a
// pgx connection pool.
//
// All three stores share one [Store] value and one schema created by
// [Store.Migrate]. Timestamps are stored as timestamptz; the zero time on
// a record maps to SQL NULL and back.
package postgres
