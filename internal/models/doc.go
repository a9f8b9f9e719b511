// Package models defines the domain entities shared by the workshop bridge, the reconciliation engine and the batch mutator.
//
// The package contains four categories of types:
//
// 1. Remote state: items known to the workshop service
//   - [ItemID] : Stable 64-bit workshop identifier; the only identity used for equality and set membership
//   - [RemoteItem] : One subscribed item (name, url, tags, size on disk), replaced wholesale on every refresh
//
// 2. Keep lists: what the user wants to retain
//   - [KeepEntry] : One (id, name, url) triple extracted from a preset document
//   - [KeepSet] : A named, immutable collection of entries; multiple sets are unioned
//
// 3. Presentation state
//   - [RemovalCandidate] : A removable item plus a user-toggleable selection flag
//   - [Stats] : Aggregate counters shown by the CLI and TUI
//
// 4. History
//   - [BatchRun] : Persisted outcome of one unsubscribe batch, with a [BatchFailure] per failed item
package models
