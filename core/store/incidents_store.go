package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type IncidentsStore interface {
	InsertIncident(ctx context.Context, incident *Incident) (int64, error)
	InsertHistoryEntry(ctx context.Context, entry *HistoryEntry) (int64, error)
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	GetHistoryEntry(ctx context.Context, id int64) (*HistoryEntry, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error)
	ListHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
	MaxCreatedAtByService(ctx context.Context, since *time.Time) (map[string]time.Time, error)
	ListLatestPerService(ctx context.Context, since *time.Time) ([]Incident, error)
	InTx(ctx context.Context, fn func(tx IncidentsTx) error) error
}

// IncidentsTx is the write surface available inside InTx.
type IncidentsTx interface {
	InsertIncident(ctx context.Context, incident *Incident) (int64, error)
	InsertHistoryEntry(ctx context.Context, entry *HistoryEntry) (int64, error)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type incidentsStore struct {
	db *DB
}

func NewIncidentsStore(db *DB) IncidentsStore {
	return &incidentsStore{db: db}
}

type incidentsTx struct {
	db *DB
	tx *sql.Tx
}

const incidentColumns = `id, service, previous_state, current_state, created_at, title, description, components, url`

const historyColumns = `id, incident_id, recorded_at, service, previous_state, current_state, title, description, components, url`

func (s *incidentsStore) InsertIncident(ctx context.Context, incident *Incident) (int64, error) {
	return insertIncident(ctx, s.db, s.db, incident)
}

func (s *incidentsStore) InsertHistoryEntry(ctx context.Context, entry *HistoryEntry) (int64, error) {
	return insertHistoryEntry(ctx, s.db, s.db, entry)
}

func (t *incidentsTx) InsertIncident(ctx context.Context, incident *Incident) (int64, error) {
	return insertIncident(ctx, t.db, t.tx, incident)
}

func (t *incidentsTx) InsertHistoryEntry(ctx context.Context, entry *HistoryEntry) (int64, error) {
	return insertHistoryEntry(ctx, t.db, t.tx, entry)
}

func insertIncident(ctx context.Context, db *DB, q queryer, incident *Incident) (int64, error) {
	if incident.CreatedAt.IsZero() {
		return 0, errors.New("insert incident: created_at is required")
	}
	incident.CreatedAt = incident.CreatedAt.UTC()
	var id int64
	err := q.QueryRowContext(ctx, db.Rebind(`
		INSERT INTO incidents(service, previous_state, current_state, created_at, title, description, components, url)
		VALUES(?,?,?,?,?,?,?,?) RETURNING id`),
		incident.Service, incident.PreviousState, incident.CurrentState, incident.CreatedAt,
		incident.Title, incident.Description, componentsToJSON(incident.Components), incident.URL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert incident: %w", err)
	}
	incident.ID = id
	return id, nil
}

func insertHistoryEntry(ctx context.Context, db *DB, q queryer, entry *HistoryEntry) (int64, error) {
	if entry.RecordedAt.IsZero() {
		return 0, errors.New("insert history entry: recorded_at is required")
	}
	entry.RecordedAt = entry.RecordedAt.UTC()
	var id int64
	err := q.QueryRowContext(ctx, db.Rebind(`
		INSERT INTO incident_history(incident_id, recorded_at, service, previous_state, current_state, title, description, components, url)
		VALUES(?,?,?,?,?,?,?,?,?) RETURNING id`),
		entry.IncidentID, entry.RecordedAt, entry.Service, entry.PreviousState, entry.CurrentState,
		entry.Title, entry.Description, componentsToJSON(entry.Components), entry.URL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	entry.ID = id
	return id, nil
}

// InTx runs fn in one transaction. Any error or panic from fn rolls it back.
func (s *incidentsStore) InTx(ctx context.Context, fn func(tx IncidentsTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tx.Rollback()
	}()
	if err := fn(&incidentsTx{db: s.db, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (s *incidentsStore) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+incidentColumns+` FROM incidents WHERE id=?`), id)
	incident, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &incident, nil
}

func (s *incidentsStore) GetHistoryEntry(ctx context.Context, id int64) (*HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+historyColumns+` FROM incident_history WHERE id=?`), id)
	entry, err := scanHistoryEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *incidentsStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error) {
	var clauses []string
	var args []any
	if service := strings.TrimSpace(filter.Service); service != "" {
		clauses = append(clauses, "service=?")
		args = append(args, service)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	query := `SELECT ` + incidentColumns + ` FROM incidents`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if filter.Ascending {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()
	res := []Incident{}
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, incident)
	}
	return res, rows.Err()
}

func (s *incidentsStore) ListHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM incident_history`
	var args []any
	if len(filter.IncidentIDs) > 0 {
		placeholders := strings.TrimRight(strings.Repeat("?,", len(filter.IncidentIDs)), ",")
		query += fmt.Sprintf(" WHERE incident_id IN (%s)", placeholders)
		for _, id := range filter.IncidentIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	res := []HistoryEntry{}
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, entry)
	}
	return res, rows.Err()
}

func (s *incidentsStore) MaxCreatedAtByService(ctx context.Context, since *time.Time) (map[string]time.Time, error) {
	query := `SELECT service, MAX(created_at) FROM incidents`
	var args []any
	if since != nil {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` GROUP BY service`
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("max created_at by service: %w", err)
	}
	defer rows.Close()
	res := map[string]time.Time{}
	for rows.Next() {
		var service string
		var latest dbTime
		if err := rows.Scan(&service, &latest); err != nil {
			return nil, err
		}
		res[service] = latest.Time
	}
	return res, rows.Err()
}

// ListLatestPerService returns one incident per service: the one with the
// greatest created_at, the highest id among equal timestamps. Newest first.
func (s *incidentsStore) ListLatestPerService(ctx context.Context, since *time.Time) ([]Incident, error) {
	inner := `SELECT service, MAX(created_at) AS max_created FROM incidents`
	var args []any
	if since != nil {
		inner += ` WHERE created_at >= ?`
		args = append(args, since.UTC())
	}
	inner += ` GROUP BY service`
	query := `
		SELECT i.id, i.service, i.previous_state, i.current_state, i.created_at, i.title, i.description, i.components, i.url
		FROM incidents i
		JOIN (` + inner + `) latest ON latest.service = i.service AND latest.max_created = i.created_at
		ORDER BY i.created_at DESC, i.id DESC`
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list latest per service: %w", err)
	}
	defer rows.Close()
	res := []Incident{}
	seen := map[string]struct{}{}
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[incident.Service]; dup {
			continue
		}
		seen[incident.Service] = struct{}{}
		res = append(res, incident)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (Incident, error) {
	var incident Incident
	var createdAt dbTime
	var components string
	if err := row.Scan(&incident.ID, &incident.Service, &incident.PreviousState, &incident.CurrentState, &createdAt,
		&incident.Title, &incident.Description, &components, &incident.URL); err != nil {
		return incident, err
	}
	incident.CreatedAt = createdAt.Time
	incident.Components = componentsFromJSON(components)
	return incident, nil
}

func scanHistoryEntry(row rowScanner) (HistoryEntry, error) {
	var entry HistoryEntry
	var recordedAt dbTime
	var components string
	if err := row.Scan(&entry.ID, &entry.IncidentID, &recordedAt, &entry.Service, &entry.PreviousState, &entry.CurrentState,
		&entry.Title, &entry.Description, &components, &entry.URL); err != nil {
		return entry, err
	}
	entry.RecordedAt = recordedAt.Time
	entry.Components = componentsFromJSON(components)
	return entry, nil
}
