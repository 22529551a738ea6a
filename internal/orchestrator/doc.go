// Package orchestrator drives a safepush run: it checks that the local
// history may be published, then validates and publishes the planned
// commits one at a time, oldest first.
//
// # Protocol
//
//  1. Resolve the revision to push (HEAD by default) and the upstream.
//  2. Fetch the upstream's remote, unless forced or disabled.
//  3. If the revision is the upstream commit, stop: a no-op success with
//     IfNeeded, ErrNothingToPush otherwise.
//  4. Require a fast-forward. Force downgrades ErrNotFastForward to a warning.
//  5. Build the Plan: every commit after the upstream, or only the revision
//     in all-at-once mode.
//  6. Ensure the shadow workspace, seeded at the first planned commit.
//  7. For each commit: validate, then publish. The first failure ends the
//     run; later commits are never published.
//
// # Errors
//
// Every failure is returned as *Error, whose Kind selects the process exit
// status (see ExitCode). Force never suppresses a validation failure.
//
// # Collaborators
//
// The orchestrator only sees ports: vcs.Inspector for reads, and the
// WorkspaceEnsurer, CommitValidator, CommitPublisher and Reporter
// interfaces declared here. Tests substitute testify mocks for all of them.
package orchestrator
