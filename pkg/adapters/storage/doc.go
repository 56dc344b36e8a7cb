// Package storage provides the key-value backends persisted state is written to.
//
// Every backend implements core.Storage. Values are opaque strings produced
// by a codec; backends never interpret them.
package storage

import "context"

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}
