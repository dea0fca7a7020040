package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrphanPostgres_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrphanPostgres(db)

	mock.ExpectExec("INSERT INTO orphan_blobs").
		WithArgs("tenant-1/k1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Record(context.Background(), "tenant-1", "tenant-1/k1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrphanPostgres_ListOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrphanPostgres(db)
	cutoff := time.Now().Add(-time.Hour)
	recorded := cutoff.Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"storage_key", "tenant_id", "recorded_at"}).
		AddRow("tenant-1/k1", "tenant-1", recorded)

	mock.ExpectQuery("SELECT (.+) FROM orphan_blobs").
		WithArgs(cutoff).
		WillReturnRows(rows)

	orphans, err := repo.ListOlderThan(context.Background(), cutoff)

	assert.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "tenant-1/k1", orphans[0].StorageKey)
	assert.Equal(t, "tenant-1", orphans[0].TenantID)
}

func TestOrphanPostgres_Remove(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrphanPostgres(db)

	mock.ExpectExec("DELETE FROM orphan_blobs").
		WithArgs("tenant-1/k1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Remove(context.Background(), "tenant-1/k1"))
}
