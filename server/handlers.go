package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/stratadata/steward/eventlog"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	count, err := s.events.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	lastDay, err := s.events.LastCompletedDay()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"event_count":        count,
		"last_completed_day": lastDay,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	opts := eventlog.ListOptions{Limit: s.cfg.EventLimit}
	if eventType := r.URL.Query().Get("event_type"); eventType != "" {
		opts.Type = eventlog.Type(eventType)
		if !opts.Type.Valid() {
			writeError(w, http.StatusBadRequest, "unknown event_type "+eventType)
			return
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if s.cfg.EventLimit > 0 && limit > s.cfg.EventLimit {
			limit = s.cfg.EventLimit
		}
		opts.Limit = limit
	}

	events, err := s.events.List(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []eventlog.Stored{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// investigationCycle summarizes one day's governance cycle.
type investigationCycle struct {
	Day                int               `json:"day"`
	Date               string            `json:"date"`
	FocusTermID        string            `json:"focus_term_id"`
	FocusTermName      string            `json:"focus_term_name"`
	RiskScore          float64           `json:"risk_score"`
	BreachCount        int               `json:"breach_count"`
	GapCount           int               `json:"gap_count"`
	RecommendationType string            `json:"recommendation_type,omitempty"`
	OutcomeImproved    *bool             `json:"outcome_improved,omitempty"`
	EventCount         int               `json:"event_count"`
	Complete           bool              `json:"complete"`
	Events             []eventlog.Stored `json:"events"`
}

func (s *Server) handleInvestigations(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	events, err := s.events.List(eventlog.ListOptions{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var cycles []*investigationCycle
	byDay := make(map[int]*investigationCycle)
	for _, event := range events {
		cycle, ok := byDay[event.Day]
		if !ok {
			cycle = &investigationCycle{Day: event.Day}
			byDay[event.Day] = cycle
			cycles = append(cycles, cycle)
		}
		cycle.EventCount++
		cycle.Events = append(cycle.Events, event)

		switch event.Type {
		case eventlog.TypeRuleBreached:
			cycle.BreachCount++
		case eventlog.TypeFocusSelected:
			cycle.FocusTermID = event.EntityID
			cycle.FocusTermName = event.EntityName
			cycle.RiskScore = floatMetric(event.Metrics, "risk_score")
			var fc eventlog.FocusSelectedContext
			if json.Unmarshal(event.Context, &fc) == nil {
				cycle.Date = fc.Date
			}
		case eventlog.TypePolicyGapDetected:
			cycle.GapCount++
		case eventlog.TypeRecommendationCreated:
			var rc eventlog.RecommendationContext
			if json.Unmarshal(event.Context, &rc) == nil {
				cycle.RecommendationType = rc.RecommendationType
			}
		case eventlog.TypeOutcomeMeasured:
			var oc eventlog.OutcomeMeasuredContext
			if json.Unmarshal(event.Context, &oc) == nil {
				improved := oc.ImprovementObserved
				cycle.OutcomeImproved = &improved
			}
		case eventlog.TypeLearningUpdated:
			cycle.Complete = true
		}
	}

	if cycles == nil {
		cycles = []*investigationCycle{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"investigations": cycles,
		"count":          len(cycles),
	})
}

func (s *Server) handleLatestState(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	lastDay, err := s.events.LastCompletedDay()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	terms, err := s.catalog.Terms()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_, memory, err := s.snapshots.Latest()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type termState struct {
		TermID          string  `json:"term_id"`
		Name            string  `json:"name"`
		Criticality     int     `json:"criticality"`
		Status          string  `json:"status"`
		LatestScore     float64 `json:"latest_score,omitempty"`
		AttentionWeight float64 `json:"attention_weight"`
	}

	states := make([]termState, 0, len(terms))
	for _, term := range terms {
		state := termState{
			TermID:          term.ID,
			Name:            term.Name,
			Criticality:     term.Criticality,
			Status:          string(term.Status),
			AttentionWeight: 1.0,
		}
		if memory != nil {
			state.AttentionWeight = memory.Attention(term.ID)
		}
		if lastDay > 0 {
			if score, err := s.catalog.Score(term.ID, lastDay); err == nil {
				state.LatestScore = score
			}
		}
		states = append(states, state)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"last_completed_day": lastDay,
		"terms":              states,
	})
}

func (s *Server) handleLearningSummary(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	day, memory, err := s.snapshots.Latest()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if memory == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"day":     0,
			"learned": false,
		})
		return
	}

	type typeStats struct {
		AppliedCount    int     `json:"applied_count"`
		ImprovedCount   int     `json:"improved_count"`
		ImprovementRate float64 `json:"improvement_rate"`
		CumulativeDelta float64 `json:"cumulative_delta"`
	}
	stats := make(map[string]typeStats, len(memory.RecommendationStats))
	for recType, st := range memory.RecommendationStats {
		stats[recType] = typeStats{
			AppliedCount:    st.AppliedCount,
			ImprovedCount:   st.ImprovedCount,
			ImprovementRate: st.ImprovementRate(),
			CumulativeDelta: st.CumulativeDelta,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"day":                      day,
		"learned":                  true,
		"preferred_recommendation": memory.PreferredRecommendation(),
		"recommendation_stats":     stats,
		"attention_weights":        memory.AttentionWeights,
		"focus_history":            memory.FocusHistory,
	})
}

func floatMetric(metrics map[string]interface{}, key string) float64 {
	if v, ok := metrics[key].(float64); ok {
		return v
	}
	return 0
}
