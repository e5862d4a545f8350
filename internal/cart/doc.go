// Package cart implements the shopping cart aggregate and its persistence.
//
// A Cart reserves quantities of catalog items against the stock observed at
// the moment AddItem is called. It is not safe for concurrent use: the
// storefront controller serializes every call on its task loop.
//
// After every successful mutation the full cart is written through its
// Persister. Write failures are logged and counted but never undo the
// in-memory mutation.
package cart
