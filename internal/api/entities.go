package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-hub/internal/bridges/entitybridge"
	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	maxQueryParamLen    = 256

	// commandSource marks commands that arrived over HTTP.
	commandSource = "api"
)

// entityView is the JSON shape of one entity.
type entityView struct {
	UniqueID       string                `json:"unique_id"`
	Platform       entity.Platform       `json:"platform"`
	Domain         string                `json:"domain"`
	EntryID        string                `json:"entry_id"`
	Name           *string               `json:"name"`
	HasEntityName  bool                  `json:"has_entity_name"`
	DeviceClass    entity.DeviceClass    `json:"device_class,omitempty"`
	Category       entity.EntityCategory `json:"entity_category,omitempty"`
	TranslationKey string                `json:"translation_key,omitempty"`
	Device         entity.DeviceInfo     `json:"device"`
	State          entity.State          `json:"state"`
}

func newEntityView(reg entity.Registered) entityView {
	info := reg.Entity.Info()
	return entityView{
		UniqueID:       reg.Entity.UniqueID(),
		Platform:       reg.Entity.Platform(),
		Domain:         reg.Entry.Domain,
		EntryID:        reg.Entry.EntryID,
		Name:           info.Name,
		HasEntityName:  info.HasEntityName,
		DeviceClass:    info.DeviceClass,
		Category:       info.Category,
		TranslationKey: info.TranslationKey,
		Device:         info.Device,
		State:          entity.StateOf(reg.Entity),
	}
}

// commandRequest is the body of POST /entities/{id}/command.
type commandRequest struct {
	ID         string         `json:"id,omitempty"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// handleListEntities lists registered entities, optionally filtered by
// platform, domain or entry.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	platform := q.Get("platform")
	domain := q.Get("domain")
	entryID := q.Get("entry_id")

	views := make([]entityView, 0, s.registry.Count())
	for _, reg := range s.registry.All() {
		if platform != "" && string(reg.Entity.Platform()) != platform {
			continue
		}
		if domain != "" && reg.Entry.Domain != domain {
			continue
		}
		if entryID != "" && reg.Entry.EntryID != entryID {
			continue
		}
		views = append(views, newEntityView(reg))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": views,
		"count":    len(views),
	})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newEntityView(reg))
}

// handleGetEntityState reads the entity's state from its coordinator's
// current snapshot.
func (s *Server) handleGetEntityState(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entity.StateOf(reg.Entity))
}

// handleGetEntityHistory returns recorded state changes, newest first.
func (s *Server) handleGetEntityHistory(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.lookup(w, r)
	if !ok {
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	since, err := parseSinceParam(r.URL.Query().Get("since"))
	if err != nil {
		writeBadRequest(w, "invalid since timestamp")
		return
	}

	if s.history == nil {
		writeUnavailable(w, "state history unavailable")
		return
	}

	uid := reg.Entity.UniqueID()
	entries, err := s.history.GetHistory(r.Context(), uid, limit)
	if err != nil {
		s.logger.Error("failed to load entity history", "entity_id", uid, "error", err)
		writeInternalError(w, "failed to load entity history")
		return
	}

	if !since.IsZero() {
		filtered := entries[:0]
		for _, e := range entries {
			if e.CreatedAt.After(since) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": uid,
		"history":   entries,
		"count":     len(entries),
	})
}

// handleEntityCommand runs a command through the bridge and answers with
// its ack.
func (s *Server) handleEntityCommand(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "id")
	if uid == "" || len(uid) > maxQueryParamLen {
		writeBadRequest(w, "invalid entity ID")
		return
	}
	if s.bridge == nil {
		writeUnavailable(w, "entity bridge unavailable")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ack := s.bridge.Execute(r.Context(), entitybridge.CommandMessage{
		ID:         req.ID,
		Timestamp:  time.Now().UTC(),
		EntityID:   uid,
		Command:    req.Command,
		Parameters: req.Parameters,
		Source:     commandSource,
	})
	writeJSON(w, ackStatus(ack), ack)
}

// ackStatus maps an ack onto an HTTP status code.
func ackStatus(ack entitybridge.AckMessage) int {
	if ack.Error == nil {
		return http.StatusOK
	}
	switch ack.Error.Code {
	case entitybridge.ErrCodeNotConfigured:
		return http.StatusNotFound
	case entitybridge.ErrCodeInvalidCommand, entitybridge.ErrCodeInvalidParameters:
		return http.StatusBadRequest
	case entitybridge.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// lookup resolves the {id} URL parameter, writing the error response when
// the entity is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (entity.Registered, bool) {
	uid := chi.URLParam(r, "id")
	if uid == "" || len(uid) > maxQueryParamLen {
		writeBadRequest(w, "invalid entity ID")
		return entity.Registered{}, false
	}
	reg, err := s.registry.Get(uid)
	if err != nil {
		if errors.Is(err, entity.ErrEntityNotFound) {
			writeNotFound(w, "entity not found")
		} else {
			writeInternalError(w, "failed to get entity")
		}
		return entity.Registered{}, false
	}
	return reg, true
}

func parseHistoryLimit(v string) (int, error) {
	if v == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return min(n, maxHistoryLimit), nil
}

func parseSinceParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
