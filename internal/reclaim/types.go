// Package reclaim contains the candidate selection and escalation logic that
// drives encrypted home volumes from mounted to unmounted once their owner
// has logged out.
package reclaim

import "context"

// MountedVolume pairs a dataset with its mountpoint as enumerated from the
// live mount table.
type MountedVolume struct {
	Dataset    string
	Mountpoint string
}

// Candidate is a volume that passed every eligibility and safety check and
// may be handed to the Engine. Only the Selector assembles Candidates for a
// pass; the safety contract lives in that single construction path.
type Candidate struct {
	Dataset    string
	Mountpoint string
	Owner      string
}

// Outcome is the terminal per-candidate result of a pass.
type Outcome struct {
	Candidate
	// Unmounted reports the final mount state.
	Unmounted bool
	// KeyUnloadAttempted is true once key unload has been tried, which
	// happens for every candidate regardless of unmount outcome.
	KeyUnloadAttempted bool
	// KeyUnloaded reports whether the unload invocation succeeded.
	KeyUnloaded bool
}

// SkipReason explains why a mounted volume was excluded from the worklist.
type SkipReason string

const (
	SkipNotMounted       SkipReason = "no-mountpoint"
	SkipOutsideMountRoot SkipReason = "outside-home-root"
	SkipOwnerUnresolved  SkipReason = "owner-unresolved"
	SkipOwnerIsOperator  SkipReason = "owner-is-operator"
	SkipOwnerLoggedIn    SkipReason = "owner-logged-in"
	SkipNotEncrypted     SkipReason = "not-encrypted"
)

// Scope selects which holders a signal applies to.
type Scope string

const (
	ScopeWrite Scope = "write"
	ScopeAny   Scope = "any"
)

// Severity selects the signal delivered to holders.
type Severity string

const (
	SeverityTerminate Severity = "terminate"
	SeverityKill      Severity = "kill"
)

// UnmountOptions select the filesystem unmount variant.
type UnmountOptions struct {
	Recursive  bool
	AllTargets bool
	Force      bool
	Lazy       bool
}

// MountInspector answers live mount-table and volume-metadata questions.
type MountInspector interface {
	ListMounted(ctx context.Context, namespace string) ([]MountedVolume, error)
	Mountpoint(ctx context.Context, dataset string) (string, error)
	Encrypted(ctx context.Context, dataset string) (bool, error)
	IsMounted(ctx context.Context, dataset string) (bool, error)
}

// Sessions lists currently logged-in accounts.
type Sessions interface {
	LoggedIn(ctx context.Context) (map[string]struct{}, error)
}

// OwnerResolver maps a mountpoint to its owning account, "" when no regular
// account owns it.
type OwnerResolver interface {
	Owner(mountpoint string) (string, error)
}

// Unmounter runs the two unmount primitives the ladder is built from.
type Unmounter interface {
	// UnmountDataset performs the native volume unmount.
	UnmountDataset(ctx context.Context, dataset string, force bool) error
	// UnmountPath performs a filesystem unmount of the mountpoint.
	UnmountPath(ctx context.Context, target string, opts UnmountOptions) error
}

// ProcessSignaler signals processes holding a mountpoint. An empty match is
// success.
type ProcessSignaler interface {
	Signal(ctx context.Context, path string, scope Scope, severity Severity) error
}

// HolderReporter emits diagnostics about processes touching a path or owned
// by an account. Purely informational; implementations must never fail the
// pass.
type HolderReporter interface {
	ReportHolders(ctx context.Context, path string)
	ReportOwnedBy(ctx context.Context, username string)
}

// KeyUnloader removes a volume's encryption key from memory.
type KeyUnloader interface {
	UnloadKey(ctx context.Context, dataset string) error
}
