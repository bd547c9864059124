// Package agent runs the daily governance loop. The agent is
// single-threaded and strictly sequential, and it is the sole writer of
// the event log: every decision the system makes on a given day is
// appended in a fixed order, so the log replays as a faithful causal
// record of the run.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stratadata/steward/catalog"
	"github.com/stratadata/steward/config"
	"github.com/stratadata/steward/errors"
	"github.com/stratadata/steward/eventlog"
	"github.com/stratadata/steward/learning"
	"github.com/stratadata/steward/ontology"
	"github.com/stratadata/steward/policy"
	"github.com/stratadata/steward/recommend"
	"github.com/stratadata/steward/risk"
	"github.com/stratadata/steward/scan"
	"github.com/stratadata/steward/semantic"
)

// Agent owns the daily loop.
type Agent struct {
	catalog   *catalog.Store
	events    *eventlog.Store
	snapshots *learning.SnapshotStore
	risk      *risk.Engine
	registry  *ontology.Registry
	interp    semantic.Interpreter
	cfg       *config.Config
	logger    *zap.SugaredLogger
	startDate time.Time
}

// DaySummary is the per-day digest surfaced by the CLI.
type DaySummary struct {
	Day            int
	Date           string
	FocusTermID    string
	FocusTermName  string
	RiskScore      float64
	BreachCount    int
	GapCount       int
	Recommendation string
	OutcomeDelta   *float64
	Events         int
}

// RunResult summarizes a completed run.
type RunResult struct {
	RunID       string
	StartDay    int
	EndDay      int
	Summaries   []DaySummary
	TotalEvents int
}

// New wires an agent over its stores. The simulation start date comes from
// configuration and is validated here, before any event can be written.
func New(
	catalogStore *catalog.Store,
	events *eventlog.Store,
	snapshots *learning.SnapshotStore,
	registry *ontology.Registry,
	interp semantic.Interpreter,
	cfg *config.Config,
	logger *zap.SugaredLogger,
) (*Agent, error) {
	start, err := time.Parse("2006-01-02", cfg.Simulation.StartDate)
	if err != nil {
		return nil, errors.NewConfigError("invalid simulation start date %q: %v",
			cfg.Simulation.StartDate, err)
	}
	return &Agent{
		catalog:   catalogStore,
		events:    events,
		snapshots: snapshots,
		risk:      risk.NewEngine(catalogStore, cfg.Risk),
		registry:  registry,
		interp:    interp,
		cfg:       cfg,
		logger:    logger,
		startDate: start,
	}, nil
}

// Run executes the loop up to and including the given day. With reset the
// event log and learning snapshots are cleared first; otherwise the run
// resumes after the last fully completed day, discarding any partial day.
func (a *Agent) Run(ctx context.Context, days int, reset bool) (*RunResult, error) {
	if days < 1 {
		return nil, errors.NewConfigError("run needs at least one day, got %d", days)
	}

	runID := uuid.New().String()

	if reset {
		if err := a.events.Reset(); err != nil {
			return nil, err
		}
		if err := a.snapshots.Reset(); err != nil {
			return nil, err
		}
	}

	cursor, memory, err := a.resume()
	if err != nil {
		return nil, err
	}

	result := &RunResult{RunID: runID, StartDay: cursor + 1, EndDay: days}
	for day := cursor + 1; day <= days; day++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "run interrupted")
		}
		summary, err := a.runDay(ctx, day, runID, memory)
		if err != nil {
			return nil, errors.Wrapf(err, "day %d", day)
		}
		result.Summaries = append(result.Summaries, *summary)
	}

	result.TotalEvents, err = a.events.Count()
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resume derives the cursor from the event log, discards any partial day
// past it and reloads the memory snapshot that closed the cursor day.
func (a *Agent) resume() (int, *learning.Memory, error) {
	cursor, err := a.events.LastCompletedDay()
	if err != nil {
		return 0, nil, err
	}
	if _, err := a.events.DiscardAfter(cursor); err != nil {
		return 0, nil, err
	}
	if err := a.snapshots.DiscardAfter(cursor); err != nil {
		return 0, nil, err
	}

	if cursor == 0 {
		return 0, learning.NewMemory(), nil
	}
	memory, err := a.snapshots.Load(cursor)
	if errors.IsNotFoundError(err) {
		// Snapshot lost but events intact; restart learning from neutral
		if a.logger != nil {
			a.logger.Warnw("No learning snapshot for resume cursor, starting from neutral state",
				"cursor_day", cursor)
		}
		return cursor, learning.NewMemory(), nil
	}
	if err != nil {
		return 0, nil, err
	}
	return cursor, memory, nil
}

// runDay executes the full governance cycle for one day.
func (a *Agent) runDay(ctx context.Context, day int, runID string, memory *learning.Memory) (*DaySummary, error) {
	date := a.dateFor(day)
	summary := &DaySummary{Day: day, Date: date}
	startCount, err := a.events.Count()
	if err != nil {
		return nil, err
	}

	assessments, classifications, err := a.assessRisks(day, date, runID, memory)
	if err != nil {
		return nil, err
	}

	focus := risk.SelectFocus(assessments)
	if focus == nil {
		return nil, errors.New("no business terms to govern")
	}
	if err := a.emitFocus(ctx, day, date, runID, focus); err != nil {
		return nil, err
	}
	summary.FocusTermID = focus.Assessment.Term.ID
	summary.FocusTermName = focus.Assessment.Term.Name
	summary.RiskScore = focus.Assessment.RiskScore
	summary.BreachCount = totalBreaches(assessments)

	if delta, err := a.measureOutcome(day, date, runID, memory); err != nil {
		return nil, err
	} else if delta != nil {
		summary.OutcomeDelta = delta
	}

	tdes, err := a.startInvestigation(ctx, day, date, runID, focus.Assessment.Term)
	if err != nil {
		return nil, err
	}

	modelColumns, columnTDEs, err := a.traceLineage(day, date, runID, focus.Assessment.Term, tdes)
	if err != nil {
		return nil, err
	}

	gaps, scanMerged, err := a.analyzeModels(ctx, day, date, runID, focus.Assessment.Term, modelColumns, columnTDEs)
	if err != nil {
		return nil, err
	}
	summary.GapCount = len(gaps)

	rec, err := a.recommendAction(day, date, runID, focus.Assessment, gaps, scanMerged, memory)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		summary.Recommendation = rec.Type
	}

	if err := a.updateLearning(ctx, day, date, runID, assessments, focus.Assessment.Term.ID, memory); err != nil {
		return nil, err
	}

	if err := a.transitionStatuses(assessments, classifications, focus.Assessment.Term.ID); err != nil {
		return nil, err
	}

	if err := a.snapshots.Save(day, runID, memory); err != nil {
		return nil, err
	}

	endCount, err := a.events.Count()
	if err != nil {
		return nil, err
	}
	summary.Events = endCount - startCount

	if a.logger != nil {
		a.logger.Infow("Day completed",
			"day", day,
			"date", date,
			"focus", summary.FocusTermID,
			"risk_score", summary.RiskScore,
			"gaps", summary.GapCount,
			"events", summary.Events,
		)
	}
	return summary, nil
}

// assessRisks runs breach detection and risk scoring for every term,
// emitting rule_breached per breach and exactly one risk_assessed per term.
// It also computes each term's status classification for the end-of-day
// transition, recorded in the risk_assessed context.
func (a *Agent) assessRisks(day int, date, runID string, memory *learning.Memory) ([]risk.Assessment, map[string]catalog.Status, error) {
	assessments, err := a.risk.AssessAll(day, memory.Attention)
	if err != nil {
		return nil, nil, err
	}

	classifications := make(map[string]catalog.Status, len(assessments))
	for _, assessment := range assessments {
		term := assessment.Term
		tdeName, err := a.firstTDEName(term)
		if err != nil {
			return nil, nil, err
		}

		for _, breach := range assessment.Breaches {
			_, err := a.events.Append(eventlog.Record{
				Day:        day,
				Type:       eventlog.TypeRuleBreached,
				EntityType: eventlog.EntityRule,
				EntityID:   breach.RuleID,
				EntityName: breach.RuleDescription,
				RunID:      runID,
				Context: eventlog.RuleBreachedContext{
					Date:            date,
					BusinessTerm:    term.Name,
					TDE:             tdeName,
					RuleDescription: breach.RuleDescription,
				},
				Metrics: map[string]any{
					"score":     breach.Score,
					"threshold": breach.Threshold,
					"gap":       breach.Gap,
				},
			})
			if err != nil {
				return nil, nil, err
			}
		}

		classification, err := a.classify(term.ID, day, assessment, memory)
		if err != nil {
			return nil, nil, err
		}
		classifications[term.ID] = classification

		details := make([]eventlog.BreachDetail, 0, len(assessment.Breaches))
		for _, b := range assessment.Breaches {
			details = append(details, eventlog.BreachDetail{
				RuleID:           b.RuleID,
				Score:            b.Score,
				Threshold:        b.Threshold,
				Gap:              b.Gap,
				RiskContribution: b.RiskContribution,
			})
		}
		_, err = a.events.Append(eventlog.Record{
			Day:        day,
			Type:       eventlog.TypeRiskAssessed,
			EntityType: eventlog.EntityBusinessTerm,
			EntityID:   term.ID,
			EntityName: term.Name,
			RunID:      runID,
			Context: eventlog.RiskAssessedContext{
				Date:             date,
				BreachesDetected: assessment.BreachCount(),
				AttentionWeight:  assessment.Attention,
				Classification:   string(classification),
				BreachDetails:    details,
			},
			Metrics: map[string]any{
				"risk_score":           assessment.RiskScore,
				"breach_count":         assessment.BreachCount(),
				"criticality":          term.Criticality,
				"attention_multiplier": assessment.Attention,
			},
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return assessments, classifications, nil
}

// classify derives the underlying status of a term, ignoring the
// investigating override applied later to the day's focus.
func (a *Agent) classify(termID string, day int, assessment risk.Assessment, memory *learning.Memory) (catalog.Status, error) {
	recent, err := a.catalog.RecentScores(termID, day, a.cfg.Risk.TrendWindowDays)
	if err != nil {
		return "", err
	}
	// RecentScores is most-recent-first; the trend wants chronological order
	chronological := make([]float64, len(recent))
	for i, s := range recent {
		chronological[len(recent)-1-i] = s
	}

	minThreshold, err := a.minThreshold(termID)
	if err != nil {
		return "", err
	}

	hasRecommendation := memory.Pending != nil && memory.Pending.TermID == termID
	return learning.ClassifyTerm(
		assessment.Score, minThreshold, learning.Slope(chronological),
		hasRecommendation, a.cfg.Learning), nil
}

func (a *Agent) minThreshold(termID string) (float64, error) {
	rules, err := a.catalog.RulesForTerm(termID)
	if err != nil {
		return 0, err
	}
	min := 0.0
	for i, rule := range rules {
		if i == 0 || rule.Threshold < min {
			min = rule.Threshold
		}
	}
	return min, nil
}

func (a *Agent) maxThreshold(termID string) (float64, error) {
	rules, err := a.catalog.RulesForTerm(termID)
	if err != nil {
		return 0, err
	}
	max := 0.0
	for _, rule := range rules {
		if rule.Threshold > max {
			max = rule.Threshold
		}
	}
	return max, nil
}

func (a *Agent) firstTDEName(term catalog.BusinessTerm) (string, error) {
	tdes, err := a.catalog.TDEsForTerm(term.ID)
	if err != nil {
		return "", err
	}
	if len(tdes) == 0 {
		return term.Name, nil
	}
	return tdes[0].Name, nil
}

// emitFocus records the day's single focus selection with the full risk
// landscape, so the choice stays auditable against the alternatives.
func (a *Agent) emitFocus(ctx context.Context, day int, date, runID string, focus *risk.Focus) error {
	landscape := make([]eventlog.TermRisk, 0, len(focus.Ranked))
	for _, assessment := range focus.Ranked {
		landscape = append(landscape, eventlog.TermRisk{
			TermID: assessment.Term.ID,
			Name:   assessment.Term.Name,
			Risk:   assessment.RiskScore,
		})
	}

	reason := fmt.Sprintf(
		"Highest composite risk %.4f across %d terms (margin %.4f over runner-up)",
		focus.Assessment.RiskScore, len(focus.Ranked), focus.MarginOverRunnerUp)
	if focus.Assessment.RiskScore == 0 {
		reason = "All terms healthy; routine monitoring focus by term order"
	}

	explanation := a.explain(ctx, string(eventlog.TypeFocusSelected), map[string]any{
		"entity_name": focus.Assessment.Term.Name,
		"risk_score":  focus.Assessment.RiskScore,
	})

	_, err := a.events.Append(eventlog.Record{
		Day:        day,
		Type:       eventlog.TypeFocusSelected,
		EntityType: eventlog.EntityBusinessTerm,
		EntityID:   focus.Assessment.Term.ID,
		EntityName: focus.Assessment.Term.Name,
		RunID:      runID,
		Context: eventlog.FocusSelectedContext{
			Date:            date,
			SelectionReason: reason,
			AllRisks:        landscape,
		},
		Metrics: map[string]any{
			"risk_score":            focus.Assessment.RiskScore,
			"margin_over_runner_up": focus.MarginOverRunnerUp,
		},
		Explanation: explanation,
	})
	return err
}

// measureOutcome closes the loop on the previous day's recommendation by
// comparing the score before it with today's score. No pending
// recommendation means nothing to measure.
func (a *Agent) measureOutcome(day int, date, runID string, memory *learning.Memory) (*float64, error) {
	pending := memory.TakePending()
	if pending == nil {
		return nil, nil
	}

	after, err := a.catalog.Score(pending.TermID, day)
	if err != nil {
		return nil, errors.Wrapf(err, "measure outcome for %s", pending.TermID)
	}

	outcome := learning.MeasureOutcome(pending.ScoreBefore, after, a.cfg.Learning)
	memory.RecordOutcome(pending.Type, pending.TermID, outcome, a.cfg.Learning)

	term, err := a.catalog.Term(pending.TermID)
	if err != nil {
		return nil, err
	}
	_, err = a.events.Append(eventlog.Record{
		Day:        day,
		Type:       eventlog.TypeOutcomeMeasured,
		EntityType: eventlog.EntityBusinessTerm,
		EntityID:   term.ID,
		EntityName: term.Name,
		RunID:      runID,
		Context: eventlog.OutcomeMeasuredContext{
			Date:                date,
			RecommendationType:  pending.Type,
			ImprovementObserved: outcome.Improved,
		},
		Metrics: map[string]any{
			"score_before": outcome.ScoreBefore,
			"score_after":  outcome.ScoreAfter,
			"delta":        outcome.Delta,
			"improved":     outcome.Improved,
		},
	})
	if err != nil {
		return nil, err
	}
	return &outcome.Delta, nil
}

// startInvestigation flips the focus term to investigating and declares
// the investigation scope as its technical data elements.
func (a *Agent) startInvestigation(ctx context.Context, day int, date, runID string, term catalog.BusinessTerm) ([]catalog.TDE, error) {
	if err := a.catalog.UpdateTermStatus(term.ID, catalog.StatusInvestigating); err != nil {
		return nil, err
	}

	tdes, err := a.catalog.TDEsForTerm(term.ID)
	if err != nil {
		return nil, err
	}
	scope := make([]string, 0, len(tdes))
	for _, tde := range tdes {
		scope = append(scope, tde.ID)
	}
	if len(scope) == 0 {
		scope = []string{term.ID}
	}

	explanation := a.explain(ctx, string(eventlog.TypeInvestigationStarted), map[string]any{
		"entity_name": term.Name,
		"tde_count":   len(tdes),
	})

	_, err = a.events.Append(eventlog.Record{
		Day:        day,
		Type:       eventlog.TypeInvestigationStarted,
		EntityType: eventlog.EntityBusinessTerm,
		EntityID:   term.ID,
		EntityName: term.Name,
		RunID:      runID,
		Context: eventlog.InvestigationStartedContext{
			Date:  date,
			Scope: scope,
		},
		Explanation: explanation,
	})
	if err != nil {
		return nil, err
	}
	return tdes, nil
}

// traceLineage resolves the focus term's TDEs to the transformation models
// and columns that produce them. The raw mapping may carry duplicates;
// pairs are deduped here before analysis.
func (a *Agent) traceLineage(day int, date, runID string, term catalog.BusinessTerm, tdes []catalog.TDE) (map[string][]string, map[string]string, error) {
	modelColumns := make(map[string][]string)
	columnTDEs := make(map[string]string)
	seen := make(map[string]bool)

	for _, tde := range tdes {
		pairs, err := a.catalog.LineageForTDE(tde.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, pair := range pairs {
			key := pair.ModelName + "|" + pair.ColumnName
			if seen[key] {
				continue
			}
			seen[key] = true
			modelColumns[pair.ModelName] = append(modelColumns[pair.ModelName], pair.ColumnName)
			columnTDEs[pair.ColumnName] = tde.ID
		}
	}

	models := make([]string, 0, len(modelColumns))
	for model := range modelColumns {
		models = append(models, model)
	}
	sort.Strings(models)

	_, err := a.events.Append(eventlog.Record{
		Day:        day,
		Type:       eventlog.TypeLineageTraced,
		EntityType: eventlog.EntityBusinessTerm,
		EntityID:   term.ID,
		EntityName: term.Name,
		RunID:      runID,
		Context: eventlog.LineageTracedContext{
			Date:       date,
			TDECount:   len(tdes),
			ModelCount: len(models),
			Models:     models,
		},
		Metrics: map[string]any{
			"tde_count":   len(tdes),
			"model_count": len(models),
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return modelColumns, columnTDEs, nil
}

// analyzeModels scans each lineage model, enriches the result through the
// semantic interpreter and runs policy detection. One sql_analysis_completed
// event per model, one policy_gap_detected per gap. The interpreter is
// timeout-bounded and advisory; its failure never stops the analysis.
func (a *Agent) analyzeModels(
	ctx context.Context,
	day int,
	date, runID string,
	term catalog.BusinessTerm,
	modelColumns map[string][]string,
	columnTDEs map[string]string,
) ([]policy.Gap, scan.Result, error) {
	models := make([]string, 0, len(modelColumns))
	for model := range modelColumns {
		models = append(models, model)
	}
	sort.Strings(models)

	var allGaps []policy.Gap
	var merged scan.Result

	for _, model := range models {
		source, err := a.catalog.ModelSource(model)
		if errors.IsNotFoundError(err) {
			// Lineage references a model the catalog does not hold; that is
			// a lineage gap, not a failure, and it yields zero findings.
			if a.logger != nil {
				a.logger.Warnw("Lineage references unknown model", "model", model)
			}
			continue
		}
		if err != nil {
			return nil, merged, err
		}

		result := scan.Scan(model, source)
		merged.Findings = append(merged.Findings, result.Findings...)

		columns := result.Columns
		if len(columns) == 0 {
			columns = modelColumns[model]
		}
		semanticTypes := a.inferTypes(ctx, source, columns)
		a.persistSemanticTypes(semanticTypes, columnTDEs)

		notes := a.annotateRisks(ctx, source)
		annotations := make([]eventlog.RiskAnnotation, 0, len(notes))
		for _, note := range notes {
			annotations = append(annotations, eventlog.RiskAnnotation{
				TransformationType: note.TransformationType,
				ColumnAffected:     note.ColumnAffected,
				RiskDescription:    note.RiskDescription,
				Severity:           note.Severity,
			})
		}

		explanation := a.explain(ctx, string(eventlog.TypeSQLAnalysisCompleted), map[string]any{
			"entity_name":   model,
			"finding_count": len(result.Findings),
			"flags":         strings.Join(result.SummaryFlags, "; "),
		})

		_, err = a.events.Append(eventlog.Record{
			Day:        day,
			Type:       eventlog.TypeSQLAnalysisCompleted,
			EntityType: eventlog.EntityModel,
			EntityID:   model,
			EntityName: model,
			RunID:      runID,
			Context: eventlog.SQLAnalysisContext{
				Date:          date,
				BusinessTerm:  term.Name,
				SummaryFlags:  result.SummaryFlags,
				SemanticTypes: semanticTypes,
				LLMRiskCount:  len(annotations),
				LLMRisks:      annotations,
				PIIExposed:    result.PIIColumnsExposed,
			},
			Metrics: map[string]any{
				"finding_count":  len(result.Findings),
				"join_count":     result.JoinCount,
				"llm_risk_count": len(annotations),
			},
			Explanation: explanation,
		})
		if err != nil {
			return nil, merged, err
		}

		gaps := policy.Detect(a.registry, semanticTypes, result)
		for _, gap := range gaps {
			_, err := a.events.Append(eventlog.Record{
				Day:        day,
				Type:       eventlog.TypePolicyGapDetected,
				EntityType: eventlog.EntityModel,
				EntityID:   model,
				EntityName: model,
				RunID:      runID,
				Context: eventlog.PolicyGapContext{
					Date:               date,
					BusinessTerm:       term.Name,
					Column:             gap.Column,
					SemanticType:       gap.SemanticType,
					MissingValidation:  gap.MissingValidation,
					ForbiddenTransform: gap.ForbiddenTransform,
					SeverityLevel:      gap.Severity,
					Description:        gap.Description,
				},
				Explanation: a.explain(ctx, string(eventlog.TypePolicyGapDetected), map[string]any{
					"entity_name": gap.Column,
					"severity":    gap.Severity,
				}),
			})
			if err != nil {
				return nil, merged, err
			}
		}
		allGaps = append(allGaps, gaps...)
	}

	return allGaps, merged, nil
}

// inferTypes asks the interpreter for column semantic types under a bounded
// timeout, degrading to deterministic heuristics on any failure.
func (a *Agent) inferTypes(ctx context.Context, source string, columns []string) map[string]string {
	semCtx, cancel := a.semanticContext(ctx)
	defer cancel()

	types, err := a.interp.InferSemanticTypes(semCtx, source, columns)
	if err != nil || types == nil {
		if err != nil && a.logger != nil {
			a.logger.Warnw("Semantic type inference failed, using heuristics", "error", err)
		}
		types = make(map[string]string, len(columns))
		for _, col := range columns {
			types[col] = semantic.ClassifyColumn(col)
		}
	}
	return types
}

func (a *Agent) annotateRisks(ctx context.Context, source string) []semantic.RiskNote {
	semCtx, cancel := a.semanticContext(ctx)
	defer cancel()

	notes, err := a.interp.AnnotateRisks(semCtx, source)
	if err != nil {
		if a.logger != nil {
			a.logger.Warnw("Risk annotation failed, continuing without", "error", err)
		}
		return nil
	}
	return notes
}

func (a *Agent) explain(ctx context.Context, eventType string, payload map[string]any) string {
	semCtx, cancel := a.semanticContext(ctx)
	defer cancel()

	explanation, err := a.interp.Explain(semCtx, eventType, payload)
	if err != nil {
		return ""
	}
	return explanation
}

func (a *Agent) semanticContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(a.cfg.Semantic.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// persistSemanticTypes writes inferred types back onto the TDEs whose
// lineage columns they describe.
func (a *Agent) persistSemanticTypes(semanticTypes map[string]string, columnTDEs map[string]string) {
	for column, semanticType := range semanticTypes {
		tdeID, ok := columnTDEs[column]
		if !ok {
			continue
		}
		if err := a.catalog.SetSemanticType(tdeID, semanticType); err != nil && a.logger != nil {
			a.logger.Warnw("Failed to persist semantic type",
				"tde", tdeID, "semantic_type", semanticType, "error", err)
		}
	}
}

// recommendAction runs the decision table for the focus term and records
// the resulting recommendation, if any, as pending for tomorrow's outcome
// measurement.
func (a *Agent) recommendAction(
	day int,
	date, runID string,
	assessment risk.Assessment,
	gaps []policy.Gap,
	scanMerged scan.Result,
	memory *learning.Memory,
) (*recommend.Recommendation, error) {
	threshold, err := a.maxThreshold(assessment.Term.ID)
	if err != nil {
		return nil, err
	}
	window := a.cfg.Recommend.SustainedDays
	if window < 1 {
		window = 1
	}
	recent, err := a.catalog.RecentScores(assessment.Term.ID, day, window)
	if err != nil {
		return nil, err
	}

	rec := recommend.Decide(recommend.Input{
		Gaps:         gaps,
		Scan:         scanMerged,
		RecentScores: recent,
		Threshold:    threshold,
	}, a.cfg.Recommend)
	if rec == nil {
		return nil, nil
	}

	_, err = a.events.Append(eventlog.Record{
		Day:        day,
		Type:       eventlog.TypeRecommendationCreated,
		EntityType: eventlog.EntityBusinessTerm,
		EntityID:   assessment.Term.ID,
		EntityName: assessment.Term.Name,
		RunID:      runID,
		Context: eventlog.RecommendationContext{
			Date:               date,
			RecommendationType: rec.Type,
			Action:             rec.Action,
			Rationale:          rec.Rationale,
			TargetColumn:       rec.TargetColumn,
			ValidationRequired: rec.ValidationRequired,
			GapsAddressed:      rec.GapsAddressed,
		},
		Metrics: map[string]any{
			"current_score": assessment.Score,
			"gap_count":     len(gaps),
		},
	})
	if err != nil {
		return nil, err
	}

	memory.SetPending(learning.PendingRecommendation{
		Day:         day,
		TermID:      assessment.Term.ID,
		Type:        rec.Type,
		ScoreBefore: assessment.Score,
	})
	return rec, nil
}

// updateLearning folds the day into memory and closes the cycle with the
// learning_updated event. This event is the completion marker the resume
// cursor is derived from, so it must be the day's last append.
func (a *Agent) updateLearning(
	ctx context.Context,
	day int,
	date, runID string,
	assessments []risk.Assessment,
	focusTermID string,
	memory *learning.Memory,
) error {
	for _, assessment := range assessments {
		memory.ObserveDay(assessment.Term.ID, assessment.BreachCount() > 0, a.cfg.Learning)
	}
	memory.RecordFocus(day, focusTermID)

	history := make([]eventlog.FocusEntry, 0, len(memory.FocusHistory))
	for _, entry := range memory.FocusHistory {
		history = append(history, eventlog.FocusEntry{Day: entry.Day, TermID: entry.TermID})
	}

	weights := make(map[string]any, len(memory.AttentionWeights))
	for termID, weight := range memory.AttentionWeights {
		weights[termID] = weight
	}

	explanation := a.explain(ctx, string(eventlog.TypeLearningUpdated), map[string]any{
		"entity_name": "governance agent",
		"day":         day,
	})

	_, err := a.events.Append(eventlog.Record{
		Day:        day,
		Type:       eventlog.TypeLearningUpdated,
		EntityType: eventlog.EntitySystem,
		EntityID:   "agent",
		EntityName: "governance agent",
		RunID:      runID,
		Context: eventlog.LearningUpdatedContext{
			Date:                    date,
			DayNumber:               day,
			FocusHistory:            history,
			PreferredRecommendation: memory.PreferredRecommendation(),
		},
		Metrics: map[string]any{
			"attention_weights": weights,
			"tracked_types":     len(memory.RecommendationStats),
		},
		Explanation: explanation,
	})
	return err
}

// transitionStatuses applies each term's classification, with the
// investigating override for today's focus.
func (a *Agent) transitionStatuses(assessments []risk.Assessment, classifications map[string]catalog.Status, focusTermID string) error {
	for _, assessment := range assessments {
		status := classifications[assessment.Term.ID]
		if assessment.Term.ID == focusTermID {
			status = catalog.StatusInvestigating
		}
		if err := a.catalog.UpdateTermStatus(assessment.Term.ID, status); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) dateFor(day int) string {
	return a.startDate.AddDate(0, 0, day-1).Format("2006-01-02")
}

func totalBreaches(assessments []risk.Assessment) int {
	total := 0
	for _, assessment := range assessments {
		total += assessment.BreachCount()
	}
	return total
}
