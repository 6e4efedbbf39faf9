// Package cli holds the pieces shared by all homereap subcommands.
package cli

import (
	"os"

	"github.com/integrii/flaggy"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrMustRunAsRoot is returned when homereap is invoked without euid 0.
var ErrMustRunAsRoot = errors.New("homereap must be run as root")

// Command is a subcommand that can be attached to the root flaggy parser.
type Command interface {
	Flaggy() *flaggy.Subcommand
	Run(log *zap.Logger, opts *GlobalOptions) error
}

// GlobalOptions are flags shared across subcommands. Empty for now,
// kept so subcommand signatures stay stable when globals appear.
type GlobalOptions struct{}

// IsRunningAsRoot reports whether the current process has root privileges.
func IsRunningAsRoot() (bool, error) {
	return os.Geteuid() == 0, nil
}
