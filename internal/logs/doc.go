// Package logs tails the application log and the tool logs CatGT, TPrime and
// C_Waves leave in the work directory.
//
// Tail returns the last N lines together with the byte offset to continue
// from; Follow polls from that offset until the context ends. Tool logs are
// removed at the start of every batch, so a file that shrinks or disappears
// restarts reading from the beginning.
package logs
