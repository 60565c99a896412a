/*
Package session serializes access to persisted flow runs.

A Manager wraps a ports.SnapshotStore so that every read and write of one flow
instance happens under a per-instance lock. Locks are reference counted and
dropped once no caller holds them; an optional ports.DistributedLocker extends
the guarantee across replicas sharing the same store.
*/
package session
