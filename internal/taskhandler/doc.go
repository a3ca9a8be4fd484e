// Package taskhandler holds the Task Handler contract's reference fake.
// Task Handler (spec §4.1) is an abstract contract fulfilled by a
// per-concern executor inside a plugin process; sysconfigd's core never
// implements one itself (every real handler is an external plugin). This
// package gives tests an in-memory MapHandler satisfying api.TaskHandler,
// so the contract's invariants (pure diff, dry_run-behaves-as-diff,
// deterministic diff(x,x)=[]) can be exercised without a subprocess.
package taskhandler
