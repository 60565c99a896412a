/*
Package ports defines the driven ports (interfaces) the flowmanager adapters implement.

The engine itself depends on none of them: snapshots are written by the
observability recorder and locks are taken by the instance guard in pkg/session.

# Key Interfaces

  - SnapshotStore: persists and loads run snapshots (memory, Redis, encrypted).
  - DistributedLocker: serializes work on one flow instance across replicas.
*/
package ports
