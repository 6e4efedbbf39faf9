// Package owner resolves mountpoints to owning accounts and identifies the
// operator running the current pass.
package owner

import (
	"os"
	"os/user"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Resolver maps home mountpoints to account names.
type Resolver struct {
	uidFloor int
	log      *zap.Logger
}

// NewResolver creates a Resolver. Mountpoints owned by uids below uidFloor
// are treated as unowned; system accounts never hold reclaimable homes.
func NewResolver(log *zap.Logger, uidFloor int) *Resolver {
	return &Resolver{
		uidFloor: uidFloor,
		log:      log,
	}
}

// Owner returns the username owning the mountpoint, or "" when no regular
// account maps to it.
func (r *Resolver) Owner(mountpoint string) (string, error) {
	info, err := os.Stat(mountpoint)
	if err != nil {
		return "", errors.Wrapf(err, "stat %s", mountpoint)
	}

	uid, err := statUID(info)
	if err != nil {
		return "", err
	}
	if int(uid) < r.uidFloor {
		r.log.Debug("Mountpoint owned by system uid",
			zap.String("mountpoint", mountpoint), zap.Uint32("uid", uid))
		return "", nil
	}

	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		if _, unknown := err.(user.UnknownUserIdError); unknown {
			return "", nil
		}
		return "", errors.Wrapf(err, "looking up uid %d", uid)
	}
	return u.Username, nil
}

// OperatorIdentities returns the usernames this pass runs as: the invoking
// identity plus the privilege-elevation source identity when present. Both
// are matched downstream as exact, case-sensitive strings against candidate
// owners.
func OperatorIdentities() ([]string, error) {
	current, err := user.Current()
	if err != nil {
		return nil, errors.Wrap(err, "resolving current user")
	}
	identities := []string{current.Username}
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != current.Username {
		identities = append(identities, sudoUser)
	}
	return identities, nil
}
