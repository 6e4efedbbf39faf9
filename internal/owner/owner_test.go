package owner

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSystemUIDFloorFromLoginDefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.defs")
	require.NoError(t, os.WriteFile(path, []byte(`
# Min/max values for automatic uid selection in useradd
UID_MIN 2000
UID_MAX 60000
`), 0o600))

	assert.Equal(t, 2000, systemUIDFloor(zaptest.NewLogger(t), path))
}

func TestSystemUIDFloorDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent")

	assert.Equal(t, DefaultSystemUIDFloor, systemUIDFloor(zaptest.NewLogger(t), path))
}

func TestSystemUIDFloorDefaultsWhenKeyAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.defs")
	require.NoError(t, os.WriteFile(path, []byte("UMASK 022\n"), 0o600))

	assert.Equal(t, DefaultSystemUIDFloor, systemUIDFloor(zaptest.NewLogger(t), path))
}

func TestOwnerMissingMountpoint(t *testing.T) {
	r := NewResolver(zaptest.NewLogger(t), DefaultSystemUIDFloor)

	_, err := r.Owner(filepath.Join(t.TempDir(), "gone"))

	assert.Error(t, err)
}

func TestOwnerSystemUIDIsUnresolved(t *testing.T) {
	// A fresh temp dir is owned by the test runner; set the floor above
	// any real uid so the ownership check rejects it.
	r := NewResolver(zaptest.NewLogger(t), 1<<31-1)

	owner, err := r.Owner(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, owner)
}

func TestOwnerResolvesCurrentUser(t *testing.T) {
	// With a floor of zero every uid resolves, including the test runner's.
	r := NewResolver(zaptest.NewLogger(t), 0)
	current, err := user.Current()
	require.NoError(t, err)

	owner, err := r.Owner(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, current.Username, owner)
}

func TestOperatorIdentitiesIncludesElevationSource(t *testing.T) {
	t.Setenv("SUDO_USER", "carol")

	identities, err := OperatorIdentities()

	require.NoError(t, err)
	current, err := user.Current()
	require.NoError(t, err)
	assert.Contains(t, identities, current.Username)
	assert.Contains(t, identities, "carol")
}

func TestOperatorIdentitiesWithoutElevation(t *testing.T) {
	t.Setenv("SUDO_USER", "")

	identities, err := OperatorIdentities()

	require.NoError(t, err)
	assert.Len(t, identities, 1)
}
