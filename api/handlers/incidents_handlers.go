package handlers

import (
	"errors"
	"net/http"

	"status-service/config"
	"status-service/core/incidents"
	"status-service/core/utils"
)

type IncidentsHandler struct {
	cfg    *config.AppConfig
	svc    *incidents.Service
	gen    *incidents.Generator
	logger *utils.Logger
}

func NewIncidentsHandler(cfg *config.AppConfig, svc *incidents.Service, gen *incidents.Generator, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{cfg: cfg, svc: svc, gen: gen, logger: logger}
}

func (h *IncidentsHandler) maxBody() int64 {
	if h.cfg == nil || h.cfg.HTTP.MaxBodyBytes <= 0 {
		return 64 * 1024
	}
	return h.cfg.HTTP.MaxBodyBytes
}

func (h *IncidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody())
	var payload incidents.IncidentCreate
	fields, populated := decodeJSON(r, &payload)
	if populated {
		if err := h.svc.Validate(payload); err != nil {
			var verr *incidents.ValidationError
			if !errors.As(err, &verr) {
				writeError(w, r, h.logger, err)
				return
			}
			fields = mergeFieldErrors(fields, verr.Fields)
		}
	}
	if len(fields) > 0 {
		writeValidation(w, fields...)
		return
	}
	view, err := h.svc.CreateIncident(r.Context(), payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *IncidentsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ferr := pathID(r, "incident_id")
	if ferr != nil {
		writeValidation(w, *ferr)
		return
	}
	items, err := h.svc.GetHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *IncidentsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	var fields []incidents.FieldError
	since, ferr := queryTime(r, "start_date")
	if ferr != nil {
		fields = append(fields, *ferr)
	}
	count, ferr := queryInt(r, "count")
	if ferr != nil {
		fields = append(fields, *ferr)
	}
	withHistory, ferr := queryBool(r, "include_history")
	if ferr != nil {
		fields = append(fields, *ferr)
	}
	if len(fields) > 0 {
		writeValidation(w, fields...)
		return
	}
	items, err := h.svc.GetRecent(r.Context(), incidents.RecentQuery{StartDate: since, Count: count, IncludeHistory: withHistory})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ferr := pathID(r, "incident_id")
	if ferr != nil {
		writeValidation(w, *ferr)
		return
	}
	view, err := h.svc.GetIncident(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *IncidentsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.gen == nil {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	view, err := h.gen.Generate(r.Context(), r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *IncidentsHandler) Services(w http.ResponseWriter, r *http.Request) {
	since, ferr := queryTime(r, "since")
	if ferr != nil {
		writeValidation(w, *ferr)
		return
	}
	items, err := h.svc.ListServices(r.Context(), since)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *IncidentsHandler) ServiceStatus(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ServiceStatus(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
