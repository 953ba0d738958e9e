/*
Package observability provides tools for monitoring the Wayfinder engine.

It turns engine lifecycle events into Prometheus metrics and structured
log records. Both are exposed as domain.LifecycleHooks so they can be merged
and handed to the engine.
*/
package observability
