package incidents

import (
	"status-service/core/store"
	"status-service/core/utils"
)

// IncidentDetail is the descriptive part of an incident view, nested under
// "incident".
type IncidentDetail struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Components  []string `json:"components"`
	URL         string   `json:"url"`
}

type IncidentView struct {
	ID            int64           `json:"id"`
	Service       string          `json:"service"`
	PreviousState string          `json:"previous_state"`
	CurrentState  string          `json:"current_state"`
	CreatedAt     utils.Timestamp `json:"created_at"`
	Incident      IncidentDetail  `json:"incident"`
	History       []HistoryView   `json:"history"`
}

type HistoryView struct {
	ID            int64           `json:"id"`
	IncidentID    int64           `json:"incident_id"`
	RecordedAt    utils.Timestamp `json:"recorded_at"`
	Service       string          `json:"service"`
	PreviousState string          `json:"previous_state"`
	CurrentState  string          `json:"current_state"`
	Incident      IncidentDetail  `json:"incident"`
}

type ServiceStatus struct {
	Service       string          `json:"service"`
	CurrentState  string          `json:"current_state"`
	PreviousState string          `json:"previous_state"`
	IncidentID    int64           `json:"incident_id"`
	LastChangedAt utils.Timestamp `json:"last_changed_at"`
}

type ServiceSummary struct {
	Service       string          `json:"service"`
	LastChangedAt utils.Timestamp `json:"last_changed_at"`
}

func detailOf(f store.IncidentFields) IncidentDetail {
	components := make([]string, len(f.Components))
	copy(components, f.Components)
	return IncidentDetail{
		Title:       f.Title,
		Description: f.Description,
		Components:  components,
		URL:         f.URL,
	}
}

// NewIncidentView projects an incident row. history may be nil; the view
// always carries a (possibly empty) history list.
func NewIncidentView(inc store.Incident, history []store.HistoryEntry) IncidentView {
	view := IncidentView{
		ID:            inc.ID,
		Service:       inc.Service,
		PreviousState: inc.PreviousState,
		CurrentState:  inc.CurrentState,
		CreatedAt:     utils.Timestamp(inc.CreatedAt),
		Incident:      detailOf(inc.IncidentFields),
		History:       make([]HistoryView, 0, len(history)),
	}
	for _, entry := range history {
		view.History = append(view.History, NewHistoryView(entry))
	}
	return view
}

func NewHistoryView(entry store.HistoryEntry) HistoryView {
	return HistoryView{
		ID:            entry.ID,
		IncidentID:    entry.IncidentID,
		RecordedAt:    utils.Timestamp(entry.RecordedAt),
		Service:       entry.Service,
		PreviousState: entry.PreviousState,
		CurrentState:  entry.CurrentState,
		Incident:      detailOf(entry.IncidentFields),
	}
}
