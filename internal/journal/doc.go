// Package journal records submission outcomes in PostgreSQL.
//
// The worker hands outcomes to the journal without blocking: they are
// queued in a growable buffer and written in batches. When the buffer hits
// its ceiling the oldest entries are dropped. Rows are insert-only and keyed
// by quote ID.
package journal
