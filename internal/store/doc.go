// Package store provides the key-value persistence used for the cart record.
//
// KV is deliberately small: one value per key, whole-value replace on Put,
// idempotent Delete. Backends:
//
//   - SQLite (this package): the default durable store
//   - Memory (this package): process-local, for tests and ephemeral sessions
//   - badger (store/badger): embedded LSM store
//   - s3 (store/s3): object storage, one object per key
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Every successful Put bumps the row's revision so a later reader can tell
// two writes of the same bytes apart.
package store
