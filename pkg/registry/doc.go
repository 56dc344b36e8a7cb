// Package registry collects the capabilities feature modules contribute to the
// application store: reducers, middleware, persisted subtrees and derived-value
// listeners.
//
// Registries follow a two-phase protocol. While open, feature modules call
// Register (usually from a Module's Register method during startup). The
// composer then freezes them; any later registration fails with
// core.ErrRegistryFrozen. Duplicate keys fail with a *core.DuplicateKeyError and
// leave the registry untouched.
package registry
