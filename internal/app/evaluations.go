package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/evaldash/internal/adapters/evalapi"
	"github.com/okian/evaldash/internal/adapters/repository"
	"github.com/okian/evaldash/internal/domain/aggregate"
	"github.com/okian/evaldash/internal/domain/dedupe"
	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/pkg/logger"
	"github.com/okian/evaldash/pkg/metrics"
)

// Shares are verdict bucket percentages of a total.
type Shares struct {
	Recommended    float64 `json:"recommended"`
	Caution        float64 `json:"caution"`
	NotRecommended float64 `json:"notRecommended"`
}

// AdminOverview is everything the admin dashboard renders for one filter.
// Metrics, shares, schools and school options are global KPIs over every
// evaluation; only Evaluations follows the search and school filter.
type AdminOverview struct {
	Metrics       model.AdminMetrics        `json:"metrics"`
	Shares        Shares                    `json:"shares"`
	Schools       []model.SchoolSummary     `json:"schools"`
	SchoolOptions []string                  `json:"schoolOptions"`
	Evaluations   []model.EvaluationSummary `json:"evaluations"`
}

// adminKPIs is the filter-independent part of AdminOverview.
type adminKPIs struct {
	metrics       model.AdminMetrics
	shares        Shares
	schools       []model.SchoolSummary
	schoolOptions []string
}

func (k adminKPIs) clone() adminKPIs {
	out := k
	out.schools = append([]model.SchoolSummary(nil), k.schools...)
	out.schoolOptions = append([]string(nil), k.schoolOptions...)
	return out
}

func computeAdminKPIs(evs []model.EvaluationSummary) adminKPIs {
	m := aggregate.ComputeMetrics(evs)
	total := float64(m.Total)
	return adminKPIs{
		metrics: m,
		shares: Shares{
			Recommended:    aggregate.Percentage(float64(m.Recommended), total),
			Caution:        aggregate.Percentage(float64(m.Caution), total),
			NotRecommended: aggregate.Percentage(float64(m.NotRecommended), total),
		},
		schools:       aggregate.ComputeSchoolsSummary(evs),
		schoolOptions: aggregate.BuildSchoolOptions(evs),
	}
}

// CoordinatorRow is one evaluation in the coordinator list with its
// resolved decision and risk bucket.
type CoordinatorRow struct {
	model.EvaluationSummary
	EffectiveDecision model.DecisionStatus `json:"effectiveDecision"`
	Risk              model.RiskBucket     `json:"risk"`
}

// CoordinatorView is the coordinator dashboard for one filter. Metrics cover
// every evaluation; Evaluations follows the search and decision filter.
type CoordinatorView struct {
	Metrics     model.CoordinatorMetrics `json:"metrics"`
	Evaluations []CoordinatorRow         `json:"evaluations"`
}

// DecisionResult reports an accepted decision and the audit events it produced.
type DecisionResult struct {
	EvaluationID string               `json:"evaluationId"`
	Status       model.DecisionStatus `json:"status"`
	Events       []model.AuditEvent   `json:"events"`
}

// AdminOverview returns the global KPIs and school rollups together with the
// evaluation list narrowed by search and school.
func (s *Service) AdminOverview(ctx context.Context, search, school string) (AdminOverview, error) {
	evs, err := s.evaluations(ctx)
	if err != nil {
		return AdminOverview{}, err
	}
	if school == "" {
		school = aggregate.AllSchools
	}

	kpis := s.overviewMemo.Get(aggregate.Fingerprint(evs), func() adminKPIs {
		return computeAdminKPIs(evs)
	})
	return AdminOverview{
		Metrics:       kpis.metrics,
		Shares:        kpis.shares,
		Schools:       kpis.schools,
		SchoolOptions: kpis.schoolOptions,
		Evaluations:   aggregate.CloneSummaries(aggregate.FilterEvaluations(evs, search, school)),
	}, nil
}

// CoordinatorList returns the evaluations matching search and decision, with
// decisions accepted by this process applied.
func (s *Service) CoordinatorList(ctx context.Context, search string, decision aggregate.DecisionFilter) (CoordinatorView, error) {
	decision = aggregate.DecisionFilter(strings.ToUpper(strings.TrimSpace(string(decision))))
	if !decision.Valid() {
		return CoordinatorView{}, fmt.Errorf("%w: decision %q", ErrInvalidFilter, decision)
	}
	evs, err := s.evaluations(ctx)
	if err != nil {
		return CoordinatorView{}, err
	}
	overrides := s.overridesSnapshot()

	filtered := aggregate.FilterByDecision(evs, search, decision, overrides)
	rows := make([]CoordinatorRow, len(filtered))
	for i, ev := range filtered {
		rows[i] = CoordinatorRow{
			EvaluationSummary: ev.Clone(),
			EffectiveDecision: aggregate.EffectiveDecision(ev, overrides),
			Risk:              aggregate.ClassifyVerdict(ev.Verdict()),
		}
	}
	return CoordinatorView{
		Metrics: s.coordinatorMemo.Get(aggregate.Fingerprint(evs), func() model.CoordinatorMetrics {
			return aggregate.ComputeCoordinatorMetrics(evs)
		}),
		Evaluations: rows,
	}, nil
}

// OpenEvaluation fetches one evaluation and records EVALUATION_OPENED.
func (s *Service) OpenEvaluation(ctx context.Context, actor model.Actor, id, source string) (model.EvaluationDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.EvaluationDetail{}, fmt.Errorf("%w: empty evaluation id", ErrInvalidInput)
	}
	if s.source == nil {
		return model.EvaluationDetail{}, ErrNoSource
	}

	detail, err := s.source.GetEvaluationDetail(ctx, id)
	if err != nil {
		return model.EvaluationDetail{}, s.sourceError(ctx, "open evaluation", id, err)
	}

	s.overridesMu.RLock()
	if st, ok := s.overrides[id]; ok {
		detail.CoordinatorDecisionStatus = st
	}
	s.overridesMu.RUnlock()

	s.audit.Append(ctx, repository.AppendInput{
		Type:         model.EventEvaluationOpened,
		Actor:        actor,
		EvaluationID: id,
		Metadata:     model.EvaluationMetadata{Source: source},
	})
	return detail, nil
}

// SetDecision submits a coordinator decision. On success the decision is
// shown locally right away and COORDINATOR_DECISION_SET is recorded, plus
// COORDINATOR_COMMENT_SET when the comment is not blank. Nothing is recorded
// when the submission fails.
func (s *Service) SetDecision(
	ctx context.Context,
	actor model.Actor,
	id string,
	status model.DecisionStatus,
	comment string,
) (DecisionResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DecisionResult{}, fmt.Errorf("%w: empty evaluation id", ErrInvalidInput)
	}
	if !status.Valid() {
		return DecisionResult{}, fmt.Errorf("%w: %q", ErrInvalidDecision, status)
	}
	if s.source == nil {
		return DecisionResult{}, ErrNoSource
	}

	comment = strings.TrimSpace(comment)
	if err := s.source.SubmitDecision(ctx, id, model.DecisionPayload{Status: status, Comment: comment}); err != nil {
		return DecisionResult{}, s.sourceError(ctx, "submit decision", id, err)
	}
	metrics.RecordCoordinatorDecision(string(status))

	s.overridesMu.Lock()
	s.overrides[id] = status
	s.overridesMu.Unlock()

	res := DecisionResult{EvaluationID: id, Status: status}
	res.Events = append(res.Events, s.audit.Append(ctx, repository.AppendInput{
		Type:         model.EventCoordinatorDecision,
		Actor:        actor,
		EvaluationID: id,
		Metadata: model.DecisionMetadata{
			Status:        status,
			DecidedAt:     model.FormatTime(s.now()),
			DecidedByID:   actor.ID,
			DecidedByName: actor.Name,
		},
	}))
	if comment != "" {
		res.Events = append(res.Events, s.audit.Append(ctx, repository.AppendInput{
			Type:         model.EventCoordinatorComment,
			Actor:        actor,
			EvaluationID: id,
			Metadata:     model.CommentMetadata{HasComment: true, Length: utf8.RuneCountInString(comment)},
		}))
	}

	s.log().Info(ctx, "coordinator decision recorded",
		logger.String("evaluation_id", id),
		logger.String("status", string(status)),
		logger.String("actor", actor.Name),
	)
	return res, nil
}

// SetDecisionOnce is SetDecision guarded by an idempotency key. A repeated
// key returns the first result without submitting again. Failed submissions
// do not consume the key.
func (s *Service) SetDecisionOnce(
	ctx context.Context,
	key string,
	actor model.Actor,
	id string,
	status model.DecisionStatus,
	comment string,
) (DecisionResult, bool, error) {
	res, replayed, err := dedupe.Do(s.decisionKeys, strings.TrimSpace(key), func() (DecisionResult, error) {
		return s.SetDecision(ctx, actor, id, status, comment)
	})
	if replayed {
		res.Events = slices.Clone(res.Events)
	}
	return res, replayed, err
}

// evaluations returns the cached evaluation list, refreshing it once the TTL
// has passed. A failed refresh serves the previous list when there is one.
func (s *Service) evaluations(ctx context.Context) ([]model.EvaluationSummary, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}

	s.snapMu.Lock()
	if s.haveSnap && s.snapshotTTL > 0 && s.now().Sub(s.fetchedAt) < s.snapshotTTL {
		evs := s.snapshot
		s.snapMu.Unlock()
		return evs, nil
	}
	s.snapMu.Unlock()

	fresh, err := s.source.ListEvaluations(ctx)

	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	if err != nil {
		if s.haveSnap {
			age := s.now().Sub(s.fetchedAt)
			metrics.RecordSnapshotStaleServed()
			metrics.UpdateSnapshot(len(s.snapshot), age)
			s.log().Warn(ctx, "evaluation refresh failed, serving previous list",
				logger.Error(err),
				logger.Duration("age", age),
			)
			return s.snapshot, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if fresh == nil {
		fresh = []model.EvaluationSummary{}
	}
	s.snapshot, s.fetchedAt, s.haveSnap = fresh, s.now(), true
	metrics.UpdateSnapshot(len(fresh), 0)
	return fresh, nil
}

// InvalidateSnapshot forces the next read to refetch evaluations.
func (s *Service) InvalidateSnapshot() {
	s.snapMu.Lock()
	s.fetchedAt = time.Time{}
	s.snapMu.Unlock()
}

func (s *Service) overridesSnapshot() map[string]model.DecisionStatus {
	s.overridesMu.RLock()
	defer s.overridesMu.RUnlock()
	out := make(map[string]model.DecisionStatus, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

func (s *Service) sourceError(ctx context.Context, op, id string, err error) error {
	if evalapi.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	metrics.RecordErrorByComponent("service", "source")
	s.log().Warn(ctx, op+" failed",
		logger.String("evaluation_id", id),
		logger.Error(err),
	)
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
