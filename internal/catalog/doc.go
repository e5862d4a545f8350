// Package catalog holds the storefront's item model and the shared, mutable
// view of the loaded catalog.
//
// Items are plain values. Every field except Stock is fixed once the catalog
// is loaded; Stock changes only through Catalog.SetStock, which is the channel
// the stock oscillator uses. Readers take snapshots with Catalog.Items or
// Catalog.Get and must not cache availability derived from them.
//
// Catalog data comes from a Provider. Providers shipped here:
//   - StaticProvider: a fixed list (the offline demo catalog or a fixture file)
//   - pokeapi.Client: the remote PokeAPI catalog (subpackage pokeapi)
//
// Provider failures are *LoadError values matching ErrCatalogLoadFailed and
// are always returned to the caller; this package never retries.
package catalog
