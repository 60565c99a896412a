/*
Package domain contains the core models shared by the flowmanager engine and its adapters.

It defines the shapes a flow is made of and the records a run produces. The package
has no I/O and no knowledge of how nodes are scheduled or persisted.

# Key Entities

  - Node: a compiled workflow node (callable, reference, call, branch, subflow, loop).
  - Object: an insertion-ordered map, used wherever declared key order matters.
  - StepOutput: the normalized edges/results pair every node produces.
  - ExecutionStep: one recorded step of a run, with nested sub-steps for structural nodes.
  - FlowContext: what a node implementation sees while it runs.
  - Snapshot: a persisted view of a run, written by the observability recorder.
*/
package domain
