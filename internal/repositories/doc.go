// Package repositories implements SQLite persistence for keep sets and batch history.
//
// Key Implementations:
//   - [PresetRepository] : Saved keep sets, unique by name, with their entries in document order
//   - [BatchRepository] : Unsubscribe batch history; implements tasks.BatchRecorder
//
// Writes that touch more than one table run inside a single transaction via [withTx].
// Item ids are stored as signed 64-bit integers; workshop ids never use the high bit.
package repositories
