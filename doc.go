// Package keel is the Composition Root for keel applications.
//
// It bootstraps a single-store state container: feature modules register
// reducers, middleware, persisted keys and state listeners during load;
// the registries are frozen and composed into one Store once the storage
// backend reports ready; a lifecycle controller mounts and unmounts the
// application and a containment policy keeps fatal faults from killing the
// process in production.
//
// Features:
//
//   - **Load-time registries**: duplicate keys fail fast, late registration fails after freeze.
//   - **Write-through persistence**: changed subtrees are stored after every dispatch.
//   - **Pluggable storage**: memory, filesystem, SQLite and S3 backends via `core.Storage`.
//   - **Observability**: slog, Prometheus and OpenTelemetry middleware, a debug server and a devtools stream.
//
// Usage:
//
//	app, err := keel.Start(ctx,
//		keel.WithConfig(cfg),
//		keel.WithModules(counter.Module()),
//	)
//	defer app.Close(ctx)
//
//	err = app.Controller.Dispatch(counter.Increment())
package keel
