package repo

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/riveredge/riveredge/pkg/database"
)

func newMockDB(t *testing.T) (database.IDatabase, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return database.NewGormDB(db), mock
}

func TestGetUserByExternalIdScopesToTenant(t *testing.T) {
	db, mock := newMockDB(t)
	ur := NewUserRepo(db, nil)

	rows := sqlmock.NewRows([]string{"id", "external_id", "tenant_id", "username"}).
		AddRow(7, "cme0abcd1234efgh5678", 3, "alice")
	mock.ExpectQuery("SELECT (.+) FROM `core_users` WHERE tenant_id = \\? AND deleted_at IS NULL AND external_id = \\?").
		WithArgs(uint64(3), "cme0abcd1234efgh5678", 1).
		WillReturnRows(rows)

	u, err := ur.GetUserByExternalId(3, "cme0abcd1234efgh5678")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByExternalIdMissesOtherTenant(t *testing.T) {
	db, mock := newMockDB(t)
	ur := NewUserRepo(db, nil)

	mock.ExpectQuery("SELECT (.+) FROM `core_users` WHERE tenant_id = \\? AND deleted_at IS NULL AND external_id = \\?").
		WithArgs(uint64(9), "cme0abcd1234efgh5678", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := ur.GetUserByExternalId(9, "cme0abcd1234efgh5678")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserBumpsVersionInSameTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	ur := NewUserRepo(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `core_users` SET (.+) WHERE tenant_id = \\? AND deleted_at IS NULL AND id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `core_permission_versions` (.+) ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, ur.DeleteUser(3, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoleToUserBumpsVersionInSameTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	rr := NewRoleRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM `core_user_roles` WHERE tenant_id = \\? AND deleted_at IS NULL AND user_id = \\? AND role_id = \\?").
		WithArgs(uint64(3), uint64(7), uint64(5), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// The grant row and the version bump land in one transaction; a failed
	// bump rolls the grant back with it.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `core_user_roles`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `core_permission_versions` (.+) ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, rr.AssignRoleToUser(3, 7, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkExpiredTenants(t *testing.T) {
	db, mock := newMockDB(t)
	tr := NewTenantRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `core_tenants` SET (.+) WHERE deleted_at IS NULL AND status = \\? AND expires_at IS NOT NULL AND expires_at < \\?").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := tr.MarkExpiredTenants(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
