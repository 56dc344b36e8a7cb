// Package middleware provides dispatch-pipeline middleware for keel stores.
//
// This package includes:
//   - Thunk, which lets an action carry a function run against the store
//   - Logger, structured logging of every dispatch
//   - CorrelationID, which stamps actions with a unique ID
//   - Prometheus metrics and OpenTelemetry tracing
//
// Register them on the middleware registry like any feature middleware:
//
//	set.Middleware.MustRegister("correlation", middleware.CorrelationID(), registry.WithOrder(-20))
//	set.Middleware.MustRegister("tracing", middleware.OpenTelemetry(), registry.WithOrder(-10))
//	set.Middleware.MustRegister("logger", middleware.Logger(logger))
//
// Thunk usually goes in as extra middleware so it sits closest to the reducer:
//
//	store, err := composer.Compose(ctx, backend, middleware.Thunk())
package middleware
