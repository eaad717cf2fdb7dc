package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdirForTest changes the working directory to dir and restores it when the
// test finishes (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
