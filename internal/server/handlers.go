package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/state"
	"github.com/roach88/mentu/internal/workspace"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type page struct {
	Limit  int
	Offset int
}

func parsePage(r *http.Request) page {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = defaultLimit
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	return page{Limit: min(max(limit, 1), maxLimit), Offset: max(offset, 0)}
}

func paginate[T any](items []T, p page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	return items[p.Offset:min(p.Offset+p.Limit, len(items))]
}

// parseSince reads the optional "since" filter. Timestamps compare as
// instants, not strings.
func parseSince(r *http.Request) (time.Time, bool, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, apperr.Newf(apperr.CodeInvalidOp, "Invalid since timestamp: %s", raw).
			With("field", "since")
	}
	return t, true, nil
}

func after(ts string, since time.Time) bool {
	t, err := time.Parse(time.RFC3339Nano, ts)
	return err == nil && t.After(since)
}

func (s *Server) readLedger(w http.ResponseWriter) ([]model.Operation, bool) {
	ops, err := s.ws.ReadAll()
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return ops, true
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"workspace":      s.ws.Name(),
	})
}

// postOp builds an operation from the request body for the key's actor and
// applies it. The body never chooses the actor.
func (s *Server) postOp(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFrom(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "Missing API key"))
		return
	}
	var req workspace.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidOp, "Invalid JSON body"))
		return
	}

	start := time.Now()
	op, err := s.ws.Submit(r.Context(), req, key.Actor)
	applyLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if ae, ok := apperr.As(err); ok {
			operationsRejected.WithLabelValues(string(req.Op), string(ae.Code)).Inc()
			s.logger.Info("operation rejected",
				"op", req.Op, "actor", key.Actor, "code", ae.Code)
		}
		writeError(w, err)
		return
	}
	operationsAccepted.WithLabelValues(string(op.Op)).Inc()
	s.logger.Info("operation accepted", "id", op.ID, "op", op.Op, "actor", op.Actor)
	writeJSON(w, http.StatusCreated, op)
}

func (s *Server) listMemories(w http.ResponseWriter, r *http.Request) {
	since, hasSince, err := parseSince(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ops, ok := s.readLedger(w)
	if !ok {
		return
	}
	kind := r.URL.Query().Get("kind")
	memState := model.MemoryState(r.URL.Query().Get("state"))

	filtered := []model.Memory{}
	for _, m := range state.Memories(ops) {
		if kind != "" && m.Kind != kind {
			continue
		}
		if memState != "" && m.State != memState {
			continue
		}
		if hasSince && !after(m.TS, since) {
			continue
		}
		filtered = append(filtered, m)
	}
	p := parsePage(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"memories": paginate(filtered, p),
		"total":    len(filtered),
		"limit":    p.Limit,
		"offset":   p.Offset,
	})
}

type memoryDetail struct {
	model.Memory
	Commitments []string `json:"commitments"`
}

func (s *Server) getMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ops, ok := s.readLedger(w)
	if !ok {
		return
	}
	m, found := state.GetMemory(ops, id)
	if !found {
		writeError(w, apperr.Newf(apperr.CodeRefNotFound, "Memory %s not found", id).With("id", id))
		return
	}
	detail := memoryDetail{Memory: m, Commitments: []string{}}
	for _, c := range state.Commitments(ops) {
		if c.Source == id {
			detail.Commitments = append(detail.Commitments, c.ID)
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) listCommitments(w http.ResponseWriter, r *http.Request) {
	since, hasSince, err := parseSince(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ops, ok := s.readLedger(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := state.Filter{
		State: model.CommitmentState(q.Get("state")),
		Owner: q.Get("owner"),
		Tag:   q.Get("tag"),
	}
	var tags []string
	if raw := q.Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			tags = append(tags, strings.TrimSpace(t))
		}
	}

	filtered := []model.Commitment{}
	for _, c := range state.FilterCommitments(ops, f) {
		if !hasAllTags(&c, tags) {
			continue
		}
		if hasSince && !after(c.TS, since) {
			continue
		}
		filtered = append(filtered, c)
	}
	p := parsePage(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"commitments": paginate(filtered, p),
		"total":       len(filtered),
		"limit":       p.Limit,
		"offset":      p.Offset,
	})
}

func hasAllTags(c *model.Commitment, tags []string) bool {
	for _, t := range tags {
		if !c.HasTag(t) {
			return false
		}
	}
	return true
}

type historyEntry struct {
	ID    string     `json:"id"`
	Op    model.Kind `json:"op"`
	TS    string     `json:"ts"`
	Actor string     `json:"actor"`
}

type commitmentDetail struct {
	model.Commitment
	LinkedMemories []string       `json:"linked_memories"`
	Duplicates     []string       `json:"duplicates"`
	History        []historyEntry `json:"history"`
}

func (s *Server) getCommitment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ops, ok := s.readLedger(w)
	if !ok {
		return
	}
	c, found := state.GetCommitment(ops, id)
	if !found {
		writeError(w, apperr.Newf(apperr.CodeRefNotFound, "Commitment %s not found", id).With("id", id))
		return
	}
	detail := commitmentDetail{
		Commitment:     c,
		LinkedMemories: nonNil(state.LinkedMemories(ops, id)),
		Duplicates:     nonNil(state.Duplicates(ops, id)),
		History:        []historyEntry{},
	}
	for i := range ops {
		op := &ops[i]
		if op.ID == id || op.CommitmentRef() == id {
			detail.History = append(detail.History, historyEntry{ID: op.ID, Op: op.Op, TS: op.TS, Actor: op.Actor})
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (s *Server) listLedger(w http.ResponseWriter, r *http.Request) {
	since, hasSince, err := parseSince(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ops, ok := s.readLedger(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	kind := model.Kind(q.Get("op"))
	actor := q.Get("actor")

	filtered := []model.Operation{}
	for _, op := range ops {
		if kind != "" && op.Op != kind {
			continue
		}
		if actor != "" && op.Actor != actor {
			continue
		}
		if hasSince && !after(op.TS, since) {
			continue
		}
		filtered = append(filtered, op)
	}
	p := parsePage(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"operations": paginate(filtered, p),
		"total":      len(filtered),
		"limit":      p.Limit,
		"offset":     p.Offset,
	})
}

type genesisStatus struct {
	Present bool   `json:"present"`
	Version string `json:"version,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	ops, ok := s.readLedger(w)
	if !ok {
		return
	}
	key, err := s.ws.Genesis()
	if err != nil {
		writeError(w, err)
		return
	}
	g := genesisStatus{Present: key != nil}
	if key != nil {
		g.Version = key.Genesis.Version
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspace":   s.ws.Name(),
		"summary":     state.Summarize(ops),
		"genesis_key": g,
	})
}
