// Package session reports which accounts are currently logged in, sourced
// from systemd-logind over D-Bus.
package session

import (
	"context"

	"github.com/coreos/go-systemd/v22/login1"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Registry answers logged-in account queries.
type Registry struct {
	log *zap.Logger
}

// NewRegistry creates a Registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log}
}

// LoggedIn returns the set of usernames with at least one logind session.
// Account matching downstream is exact and case-sensitive, so names are
// returned untouched.
func (r *Registry) LoggedIn(ctx context.Context) (map[string]struct{}, error) {
	conn, err := login1.New()
	if err != nil {
		return nil, errors.Wrap(err, "connecting to systemd-logind")
	}
	defer conn.Close()

	users, err := conn.ListUsers()
	if err != nil {
		return nil, errors.Wrap(err, "listing logind users")
	}

	loggedIn := make(map[string]struct{}, len(users))
	for _, u := range users {
		loggedIn[u.Name] = struct{}{}
	}
	r.log.Debug("Listed logged-in accounts", zap.Int("count", len(loggedIn)))
	return loggedIn, nil
}
