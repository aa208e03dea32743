package integration

import (
	"os"
	"testing"

	"github.com/dimitrije/teamscope/tests/testutil"
)

// superAdminID is the id of the first user created in a fresh database.
const superAdminID int64 = 1

// TestMain runs before all tests in this package
func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}

// setupTest creates a test database with the permission taxonomy seeded
func setupTest(t *testing.T) (*testutil.TestDB, *testutil.Fixtures) {
	t.Helper()
	tdb := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, tdb.DB, superAdminID)
	fixtures.SeedPermissions(t)
	return tdb, fixtures
}
