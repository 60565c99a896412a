/*
Package observability watches flow runs from the outside.

A Recorder listens on a hub.Hub and persists a domain.Snapshot for every
top-level run, so a paused or finished run can be inspected later through
any ports.SnapshotStore. Metrics exposes Prometheus collectors fed by
lifecycle hooks and hub events.
*/
package observability
