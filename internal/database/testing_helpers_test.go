package database

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

// Store tests run against pgxmock through the DBTX interface (dbtx.go):
//
//   Store              Test Constructor
//   -----              ----------------
//   ProductStore       NewProductStoreWithDB(db DBTX)
//   CategoryStore      NewCategoryStoreWithDB(db DBTX)
//   PostHistoryStore   NewPostHistoryStoreWithDB(db DBTX)
//
// Queries are matched as regular expressions, so escape $, ( and * in patterns.
// Transactional methods need ExpectBegin plus ExpectCommit or ExpectRollback.
// Migrations and real SQL are covered by integration_test.go (build tag "integration").

// NewMockPool creates a regexp-matching pgxmock pool that verifies its expectations on cleanup
func NewMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(func() {
		mock.Close()
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled mock expectations: %v", err)
		}
	})
	return mock
}
