// Package ledger records every stage execution in a SQLite database under the
// state directory.
//
// Each row carries the pipeline ID, session, stage name and the digest of the
// configuration record the stage consumed. A later invocation with resume
// enabled skips a stage whose session, stage and digest already succeeded.
// The store applies WAL mode and retries briefly on SQLITE_BUSY.
package ledger
