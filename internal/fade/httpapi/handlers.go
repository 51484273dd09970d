package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/public-fade-tracker/internal/fade/domain"
	"github.com/radieske/public-fade-tracker/internal/fade/repo"
	"github.com/radieske/public-fade-tracker/internal/fade/resolver"
	"github.com/radieske/public-fade-tracker/internal/fade/settings"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

// sportParam lê ?sport=; vazio significa todos
func sportParam(r *http.Request) (domain.Sport, error) {
	raw := r.URL.Query().Get("sport")
	if raw == "" {
		return "", nil
	}
	return domain.ParseSport(raw)
}

func (a *API) internalError(w http.ResponseWriter, msg string, err error) {
	a.log().Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msg)
}

// listRecent retorna os alertas resolvidos mais recentes
func (a *API) listRecent(w http.ResponseWriter, r *http.Request) {
	sport, err := sportParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	alerts, err := a.Alerts.ListRecent(r.Context(), sport, limit)
	if err != nil {
		a.internalError(w, "failed to list recent alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(alerts))
}

// getStats retorna o snapshot persistido; sem snapshot ainda, agrega na hora
func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Snapshots.Get(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	if !errors.Is(err, repo.ErrNotFound) {
		a.internalError(w, "failed to load performance", err)
		return
	}

	now := a.now()
	since := domain.StartOfDay(now.AddDate(0, 0, -a.windowDays()), a.loc())
	alerts, err := a.Alerts.ListSince(r.Context(), since)
	if err != nil {
		a.internalError(w, "failed to aggregate performance", err)
		return
	}
	writeJSON(w, http.StatusOK, resolver.Aggregate(alerts, now, a.windowDays()))
}

// listPending retorna os alertas aguardando resolução
func (a *API) listPending(w http.ResponseWriter, r *http.Request) {
	sport, err := sportParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	alerts, err := a.Alerts.ListPending(r.Context())
	if err != nil {
		a.internalError(w, "failed to list pending alerts", err)
		return
	}
	if sport != "" {
		filtered := alerts[:0]
		for _, al := range alerts {
			if al.Sport == sport {
				filtered = append(filtered, al)
			}
		}
		alerts = filtered
	}
	writeJSON(w, http.StatusOK, nonNil(alerts))
}

// listToday retorna os alertas do slate (?date=YYYYMMDD, default hoje no fuso configurado)
func (a *API) listToday(w http.ResponseWriter, r *http.Request) {
	sport, err := sportParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := domain.SlateDate(a.now(), a.loc())
	if raw := r.URL.Query().Get("date"); raw != "" {
		if _, err := domain.ParseSlateDate(raw, a.loc()); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYYMMDD")
			return
		}
		date = raw
	}

	alerts, err := a.Alerts.ListByDate(r.Context(), date, sport)
	if err != nil {
		a.internalError(w, "failed to list alerts by date", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "alerts": nonNil(alerts)})
}

// getAlert retorna um alerta pelo id
func (a *API) getAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	al, err := a.Alerts.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		a.internalError(w, "failed to get alert", err)
		return
	}
	writeJSON(w, http.StatusOK, al)
}

// getSettings retorna os ajustes de runtime correntes
func (a *API) getSettings(w http.ResponseWriter, r *http.Request) {
	if a.Settings == nil {
		writeError(w, http.StatusNotFound, "settings not available")
		return
	}
	st, err := a.Settings.Load(r.Context())
	if err != nil && !errors.Is(err, settings.ErrInvalidSetting) {
		a.internalError(w, "failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		settings.FieldUpdateInterval:      int(st.UpdateInterval.Seconds()),
		settings.FieldMaxRetries:          st.MaxRetries,
		settings.FieldFadeRatingThreshold: st.FadeRatingThreshold,
		settings.FieldMaintenanceMode:     st.MaintenanceMode,
	})
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

// updateSettings altera um campo ({"value": "..."}) com conversão tipada
func (a *API) updateSettings(w http.ResponseWriter, r *http.Request) {
	if a.Settings == nil {
		writeError(w, http.StatusNotFound, "settings not available")
		return
	}
	var req updateSettingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	field := chi.URLParam(r, "field")
	if err := a.Settings.Update(r.Context(), field, req.Value); err != nil {
		if errors.Is(err, settings.ErrInvalidSetting) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.internalError(w, "failed to update setting", err)
		return
	}
	a.log().Info("runtime setting updated", zap.String("field", field), zap.String("value", req.Value))
	a.getSettings(w, r)
}

func nonNil(alerts []domain.Alert) []domain.Alert {
	if alerts == nil {
		return []domain.Alert{}
	}
	return alerts
}
