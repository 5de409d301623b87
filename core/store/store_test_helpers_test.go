package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"status-service/config"
	"status-service/core/utils"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.AppConfig{DBDriver: config.DriverSQLite, DBURL: filepath.Join(t.TempDir(), "nested", "incidents.db")}
	logger := utils.NewDiscardLogger()
	db, err := NewDB(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, ApplyMigrations(context.Background(), db, logger))
	return db
}

var baseTime = time.Date(2025, 1, 9, 3, 0, 0, 0, time.UTC)

func sampleIncident(service, state string, at time.Time) *Incident {
	return &Incident{
		CreatedAt: at,
		IncidentFields: IncidentFields{
			Service:       service,
			PreviousState: "operational",
			CurrentState:  state,
			Title:         service + " " + state,
			Description:   "details",
			Components:    []string{"api", "db"},
			URL:           "https://status.example.com/" + service,
		},
	}
}
