// Package tasks runs unsubscribe batches and owns the reconciliation cycle around them.
//
// # Batches
//
// [BatchEngine.Execute] removes selected items strictly one at a time, in list order. Before each
// removal is issued the shared [Progress] is advanced, so a reader polling it sees the item being
// worked on. A failed removal is recorded in the [BatchResult] and the loop moves on; only context
// cancellation or a shut down workshop handle stop it early.
//
// # Progress Reporting
//
// Two channels exist for progress:
//   - [Progress] : a lock-free (completed, total) pair for UIs that poll on a timer
//   - [ProgressUpdate] : non-blocking events for line-oriented CLI output
//
// Updates use select with default to prevent blocking.
//
// # Sessions
//
// A [Session] holds the subscribed universe, the loaded keep sets and the candidate list. Any change
// to an input recomputes the removal set from scratch; selection flags survive by item id.
//
// # History
//
// The optional [BatchRecorder] persists each finished batch (repositories.BatchRepository).
// Recording errors are logged and never fail the batch.
package tasks
