// Package health reports whether focusops can do its job.
//
// A Checker reports one component: OmniFocus reachability and automation
// permission, the circuit breaker guarding script execution, the cache,
// the last warming pass, and the process itself. An Aggregator runs the
// registered checkers concurrently under one deadline and folds their
// results into a single Status.
//
// Checkers registered with RegisterOptional never make the aggregate
// worse than Degraded, so a cold cache does not fail readiness.
//
// # HTTP Endpoints
//
//	mux.Handle("/healthz", health.LivenessHandler())
//	mux.Handle("/readyz", health.ReadinessHandler(agg))
//	mux.Handle("/health", health.DetailedHandler(agg))
package health
