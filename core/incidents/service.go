package incidents

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"status-service/config"
	"status-service/core/store"
	"status-service/core/utils"
)

const EventIncidentCreated = "incident.created"

// Publisher receives every created incident view.
type Publisher interface {
	Publish(event string, payload any)
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

type Service struct {
	cfg       config.IncidentsConfig
	store     store.IncidentsStore
	clock     utils.Clock
	logger    *utils.Logger
	validator *requestValidator
	board     *boardCache
	publisher Publisher
}

func NewService(cfg *config.AppConfig, st store.IncidentsStore, clock utils.Clock, logger *utils.Logger, opts ...Option) *Service {
	var ic config.IncidentsConfig
	if cfg != nil {
		ic = cfg.Incidents
	}
	if clock == nil {
		clock = utils.SystemClock()
	}
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	s := &Service{
		cfg:       ic,
		store:     st,
		clock:     clock,
		logger:    logger,
		validator: newRequestValidator(ic),
		board:     newBoardCache(ic.BoardCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPublisher replaces the publisher after construction, for wiring that
// needs the service first.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *Service) MaxRecentCount() int {
	return s.cfg.EffectiveMaxRecentCount()
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// Validate checks a create request without persisting anything.
func (s *Service) Validate(in IncidentCreate) error {
	return s.validator.Check(in)
}

// CreateIncident stores the incident and its first history entry in one
// transaction and returns the incident view with that entry attached.
func (s *Service) CreateIncident(ctx context.Context, in IncidentCreate) (IncidentView, error) {
	if err := s.validator.Check(in); err != nil {
		return IncidentView{}, err
	}
	var incident store.Incident
	var entry store.HistoryEntry
	err := s.store.InTx(ctx, func(tx store.IncidentsTx) error {
		incident = store.Incident{CreatedAt: s.now(), IncidentFields: in.fields()}
		if _, err := tx.InsertIncident(ctx, &incident); err != nil {
			return err
		}
		snapshot := incident.IncidentFields
		snapshot.Components = append([]string{}, incident.Components...)
		entry = store.HistoryEntry{IncidentID: incident.ID, RecordedAt: s.now(), IncidentFields: snapshot}
		_, err := tx.InsertHistoryEntry(ctx, &entry)
		return err
	})
	if err != nil {
		s.logger.Errorf("incidents: create for service %q failed: %v", in.Service, err)
		return IncidentView{}, &PersistenceError{Op: "create incident", Err: err}
	}
	s.board.invalidate()
	view := NewIncidentView(incident, []store.HistoryEntry{entry})
	s.logger.Info("incident created", "id", incident.ID, "service", incident.Service, "from", incident.PreviousState, "to", incident.CurrentState)
	if s.publisher != nil {
		s.publisher.Publish(EventIncidentCreated, view)
	}
	return view, nil
}

// GetHistory lists the entries recorded for incidentID in id order. An
// unknown id yields an empty list.
func (s *Service) GetHistory(ctx context.Context, incidentID int64) ([]HistoryView, error) {
	entries, err := s.store.ListHistory(ctx, store.HistoryFilter{IncidentIDs: []int64{incidentID}})
	if err != nil {
		return nil, &PersistenceError{Op: "get history", Err: err}
	}
	res := make([]HistoryView, 0, len(entries))
	for _, e := range entries {
		res = append(res, NewHistoryView(e))
	}
	return res, nil
}

type RecentQuery struct {
	StartDate      *time.Time
	Count          *int
	IncludeHistory bool
}

// GetRecent returns up to Count newest incidents when Count is set, otherwise
// the newest incident of every service. Both are filtered by StartDate and
// ordered newest first.
func (s *Service) GetRecent(ctx context.Context, q RecentQuery) ([]IncidentView, error) {
	if q.Count != nil {
		verr := &ValidationError{}
		limit := s.MaxRecentCount()
		switch {
		case *q.Count < 1:
			verr.add("Input should be greater than or equal to 1", "greater_than_equal", "query", "count")
		case *q.Count > limit:
			verr.add("Input should be less than or equal to "+strconv.Itoa(limit), "less_than_equal", "query", "count")
		}
		if err := verr.orNil(); err != nil {
			return nil, err
		}
	}
	var since *time.Time
	if q.StartDate != nil {
		t := q.StartDate.UTC()
		since = &t
	}

	var rows []store.Incident
	var err error
	if q.Count != nil {
		rows, err = s.store.ListIncidents(ctx, store.IncidentFilter{Since: since, Limit: *q.Count})
	} else {
		rows, err = s.latestPerService(ctx, since)
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get recent incidents", Err: err}
	}

	var history map[int64][]store.HistoryEntry
	if q.IncludeHistory {
		history, err = s.historyFor(ctx, rows)
		if err != nil {
			return nil, &PersistenceError{Op: "get recent incidents history", Err: err}
		}
	}
	res := make([]IncidentView, 0, len(rows))
	for _, inc := range rows {
		res = append(res, NewIncidentView(inc, history[inc.ID]))
	}
	return res, nil
}

func (s *Service) latestPerService(ctx context.Context, since *time.Time) ([]store.Incident, error) {
	return s.board.load(since, func() ([]store.Incident, error) {
		return s.store.ListLatestPerService(ctx, since)
	})
}

func (s *Service) historyFor(ctx context.Context, rows []store.Incident) (map[int64][]store.HistoryEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(rows))
	for _, inc := range rows {
		ids = append(ids, inc.ID)
	}
	entries, err := s.store.ListHistory(ctx, store.HistoryFilter{IncidentIDs: ids})
	if err != nil {
		return nil, err
	}
	res := make(map[int64][]store.HistoryEntry, len(rows))
	for _, e := range entries {
		res[e.IncidentID] = append(res[e.IncidentID], e)
	}
	return res, nil
}

func (s *Service) GetIncident(ctx context.Context, id int64) (IncidentView, error) {
	inc, err := s.store.GetIncident(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return IncidentView{}, &NotFoundError{Kind: "incident", ID: id}
		}
		return IncidentView{}, &PersistenceError{Op: "get incident", Err: err}
	}
	entries, err := s.store.ListHistory(ctx, store.HistoryFilter{IncidentIDs: []int64{id}})
	if err != nil {
		return IncidentView{}, &PersistenceError{Op: "get incident history", Err: err}
	}
	return NewIncidentView(*inc, entries), nil
}

// ServiceStatus derives the current state of every service from its newest
// incident. Sorted by service name.
func (s *Service) ServiceStatus(ctx context.Context) ([]ServiceStatus, error) {
	rows, err := s.latestPerService(ctx, nil)
	if err != nil {
		return nil, &PersistenceError{Op: "service status", Err: err}
	}
	res := make([]ServiceStatus, 0, len(rows))
	for _, inc := range rows {
		res = append(res, ServiceStatus{
			Service:       inc.Service,
			CurrentState:  inc.CurrentState,
			PreviousState: inc.PreviousState,
			IncidentID:    inc.ID,
			LastChangedAt: utils.Timestamp(inc.CreatedAt),
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Service < res[j].Service })
	return res, nil
}

func (s *Service) ListServices(ctx context.Context, since *time.Time) ([]ServiceSummary, error) {
	latest, err := s.store.MaxCreatedAtByService(ctx, since)
	if err != nil {
		return nil, &PersistenceError{Op: "list services", Err: err}
	}
	res := make([]ServiceSummary, 0, len(latest))
	for name, at := range latest {
		res = append(res, ServiceSummary{Service: name, LastChangedAt: utils.Timestamp(at)})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Service < res[j].Service })
	return res, nil
}
