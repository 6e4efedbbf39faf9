package reclaim

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"k8s.io/utils/strings/slices"
)

// Selector builds the per-pass worklist: encrypted home volumes that are
// mounted, owned by a resolvable account that is neither the operator nor
// logged in.
type Selector struct {
	Inspector MountInspector
	Sessions  Sessions
	Owners    OwnerResolver
	// Operator holds the identities this pass runs as: the invoking user
	// and, when elevated, the elevation source. Matched exactly and
	// case-sensitively against candidate owners.
	Operator []string
	// Namespace is the dataset subtree holding per-user home volumes.
	Namespace string
	// MountRoot, when set, confines reclamation to mountpoints at or
	// below this directory; anything mounted elsewhere is rejected.
	MountRoot string
	Logger    *zap.Logger
}

// Select enumerates mounted volumes under the namespace and applies the
// eligibility checks in order, preserving mount-table enumeration order.
// Selection is pure: every rejection is logged with its reason and nothing
// is mutated.
func (s *Selector) Select(ctx context.Context) ([]Candidate, error) {
	volumes, err := s.Inspector.ListMounted(ctx, s.Namespace)
	if err != nil {
		return nil, errors.Wrapf(err, "enumerating mounted volumes under %s", s.Namespace)
	}

	loggedIn, err := s.Sessions.LoggedIn(ctx)
	if err != nil {
		// Without the logged-in set there is no safe way to tell active
		// users apart from departed ones.
		return nil, errors.Wrap(err, "listing logged-in accounts")
	}

	var candidates []Candidate
	for _, v := range volumes {
		log := s.Logger.With(zap.String("dataset", v.Dataset))

		// Re-resolve the mountpoint: the volume may have unmounted
		// between enumeration and processing. That is a race to
		// tolerate, not an error.
		mountpoint, err := s.Inspector.Mountpoint(ctx, v.Dataset)
		if err != nil {
			log.Warn("Could not resolve mountpoint, skipping", zap.Error(err))
			continue
		}
		if mountpoint == "" {
			s.skip(log, SkipNotMounted)
			continue
		}
		if s.MountRoot != "" && !pathWithin(mountpoint, s.MountRoot) {
			s.skip(log, SkipOutsideMountRoot, zap.String("mountpoint", mountpoint))
			continue
		}

		owner, err := s.Owners.Owner(mountpoint)
		if err != nil {
			log.Warn("Could not resolve owner, skipping",
				zap.String("mountpoint", mountpoint), zap.Error(err))
			continue
		}
		if owner == "" {
			s.skip(log, SkipOwnerUnresolved)
			continue
		}

		// The operator check precedes everything destructive and is
		// never skippable.
		if slices.Contains(s.Operator, owner) {
			s.skip(log, SkipOwnerIsOperator, zap.String("owner", owner))
			continue
		}

		if _, active := loggedIn[owner]; active {
			s.skip(log, SkipOwnerLoggedIn, zap.String("owner", owner))
			continue
		}

		encrypted, err := s.Inspector.Encrypted(ctx, v.Dataset)
		if err != nil {
			log.Warn("Could not read encryption state, skipping", zap.Error(err))
			continue
		}
		if !encrypted {
			s.skip(log, SkipNotEncrypted)
			continue
		}

		candidates = append(candidates, Candidate{
			Dataset:    v.Dataset,
			Mountpoint: mountpoint,
			Owner:      owner,
		})
	}
	return candidates, nil
}

func (s *Selector) skip(log *zap.Logger, reason SkipReason, fields ...zap.Field) {
	fields = append(fields, zap.String("reason", string(reason)))
	log.Info("Skipping volume", fields...)
}

// pathWithin reports whether path is root itself or lies below it.
func pathWithin(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/")
}
