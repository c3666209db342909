package assignments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/prepjourney/prepjourney-backend/internal/bucketing"
	"github.com/prepjourney/prepjourney-backend/pkg/config"
	"github.com/prepjourney/prepjourney-backend/pkg/db/models"
	"github.com/prepjourney/prepjourney-backend/pkg/enums"
	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/prepjourney/prepjourney-backend/pkg/metrics"
	"github.com/prepjourney/prepjourney-backend/pkg/outbox"
	redispkg "github.com/prepjourney/prepjourney-backend/pkg/redis"
)

type cacheClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)
	VariantKey(userID, experimentName string) string
	VariantKeyPrefix(userID string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type assignerProvider interface {
	AssignerFor(ctx context.Context, name string) (*bucketing.Assigner, bool, error)
}

// Service is the sticky assignment store. Reads walk three tiers: the fast
// cache, the authoritative remote store, then a fresh deterministic compute.
// No tier failure ever surfaces to the visitor path; the worst outcome is a
// recomputed (identical) assignment.
type Service struct {
	cache       cacheClient
	repo        Repository
	db          txRunner
	events      eventEmitter
	experiments assignerProvider
	metrics     *metrics.ExperimentMetrics
	logg        *logger.Logger
	cfg         config.ExperimentsConfig

	now func() time.Time
	wg  sync.WaitGroup
}

// NewService wires the assignment store.
func NewService(
	cache cacheClient,
	repo Repository,
	db txRunner,
	events eventEmitter,
	experiments assignerProvider,
	m *metrics.ExperimentMetrics,
	logg *logger.Logger,
	cfg config.ExperimentsConfig,
) *Service {
	return &Service{
		cache:       cache,
		repo:        repo,
		db:          db,
		events:      events,
		experiments: experiments,
		metrics:     m,
		logg:        logg,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Wait blocks until in-flight background syncs finish. Called on shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}

// GetStoredVariant reads the cache tier only. Any failure, including a
// corrupted document, degrades to a miss; corrupted entries are evicted so
// the next lookup recomputes cleanly.
func (s *Service) GetStoredVariant(ctx context.Context, userID, experimentName string) *CachedAssignment {
	key := s.cache.VariantKey(userID, experimentName)
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redispkg.Nil) {
			s.logg.Warn(s.assignmentCtx(ctx, userID, experimentName, "cache read failed: "+err.Error()), "assignment cache read failed")
		}
		return nil
	}

	var cached CachedAssignment
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || cached.Variant == "" {
		if delErr := s.cache.Del(ctx, key); delErr != nil {
			s.logg.Warn(s.assignmentCtx(ctx, userID, experimentName, "evicting corrupt entry failed: "+delErr.Error()), "assignment cache eviction failed")
		}
		s.logg.Warn(s.assignmentCtx(ctx, userID, experimentName, "corrupt cached assignment evicted"), "assignment cache entry corrupt")
		return nil
	}
	return &cached
}

// StoreVariant writes the cache tier only. Failures are logged and swallowed;
// determinism makes the lost write recoverable on the next lookup.
func (s *Service) StoreVariant(ctx context.Context, userID, experimentName, variant string, bucket int) CachedAssignment {
	cached := CachedAssignment{
		Variant:    variant,
		Bucket:     bucket,
		AssignedAt: s.now().UTC(),
	}
	s.storeCached(ctx, userID, experimentName, cached)
	return cached
}

func (s *Service) storeCached(ctx context.Context, userID, experimentName string, cached CachedAssignment) {
	payload, err := json.Marshal(cached)
	if err != nil {
		s.logg.Warn(s.assignmentCtx(ctx, userID, experimentName, err.Error()), "encoding cached assignment failed")
		return
	}
	key := s.cache.VariantKey(userID, experimentName)
	if err := s.cache.Set(ctx, key, string(payload), s.cfg.CacheTTL); err != nil {
		s.logg.Warn(s.assignmentCtx(ctx, userID, experimentName, err.Error()), "assignment cache write failed")
	}
}

// GetOrAssignVariant resolves from cache or computes a fresh assignment with
// the provided assigner. The remote tier is not consulted.
func (s *Service) GetOrAssignVariant(ctx context.Context, userID, experimentName string, assigner *bucketing.Assigner) (string, bool) {
	if cached := s.GetStoredVariant(ctx, userID, experimentName); cached != nil {
		return cached.Variant, false
	}

	bucket := bucketing.Bucket(userID, experimentName)
	variant := assigner.Assign(bucket)
	s.StoreVariant(ctx, userID, experimentName, variant, bucket)
	return variant, true
}

// GetUnifiedVariant resolves through all three tiers. The result always
// carries a usable variant; Err reports any tier trouble encountered on the
// way without failing the lookup.
func (s *Service) GetUnifiedVariant(ctx context.Context, userID, experimentName string) VariantResult {
	if cached := s.GetStoredVariant(ctx, userID, experimentName); cached != nil {
		s.metrics.IncAssignment(experimentName, string(enums.AssignmentSourceLocal))
		return VariantResult{
			Variant: cached.Variant,
			Bucket:  cached.Bucket,
			Source:  enums.AssignmentSourceLocal,
		}
	}

	assigner, running, cfgErr := s.experiments.AssignerFor(ctx, experimentName)

	// The remote tier outlives the experiment lifecycle: an assignment made
	// while the experiment ran stays authoritative after it concludes, so the
	// lookup happens before any status gate.
	var nonFatal error
	if remote := s.lookupRemote(ctx, userID, experimentName, &nonFatal); remote != nil {
		s.storeCached(ctx, userID, experimentName, *remote)
		s.metrics.IncAssignment(experimentName, string(enums.AssignmentSourceRemote))
		return VariantResult{
			Variant: remote.Variant,
			Bucket:  remote.Bucket,
			Source:  enums.AssignmentSourceRemote,
			Err:     nonFatal,
		}
	}

	if cfgErr != nil || !running {
		// Unknown or non-running experiments never bucket new users; serve the
		// canned default deterministically and leave no sticky record behind.
		if cfgErr == nil {
			cfgErr = fmt.Errorf("experiment %q is not running", experimentName)
		}
		fallback := bucketing.DefaultAssigner()
		bucket := bucketing.Bucket(userID, experimentName)
		s.metrics.IncAssignment(experimentName, string(enums.AssignmentSourceCalculated))
		return VariantResult{
			Variant: fallback.Assign(bucket),
			Bucket:  bucket,
			Source:  enums.AssignmentSourceCalculated,
			Err:     multierr.Append(nonFatal, cfgErr),
		}
	}

	bucket := bucketing.Bucket(userID, experimentName)
	variant := assigner.Assign(bucket)
	cached := s.StoreVariant(ctx, userID, experimentName, variant, bucket)
	s.queueRemoteSync(ctx, userID, experimentName, cached)
	s.metrics.IncAssignment(experimentName, string(enums.AssignmentSourceCalculated))
	return VariantResult{
		Variant: variant,
		Bucket:  bucket,
		IsNew:   true,
		Source:  enums.AssignmentSourceCalculated,
		Err:     nonFatal,
	}
}

func (s *Service) lookupRemote(ctx context.Context, userID, experimentName string, nonFatal *error) *CachedAssignment {
	timeout := s.cfg.RemoteTimeout
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	remoteCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := s.now()
	assignment, err := s.repo.Find(remoteCtx, userID, experimentName)
	s.metrics.ObserveRemoteLookup("find", s.now().Sub(started))
	if err != nil {
		*nonFatal = multierr.Append(*nonFatal, fmt.Errorf("remote lookup: %w", err))
		s.logg.Warn(s.assignmentCtx(ctx, userID, experimentName, err.Error()), "remote assignment lookup failed")
		return nil
	}
	if assignment == nil {
		return nil
	}
	return &CachedAssignment{
		Variant:    assignment.Variant,
		Bucket:     assignment.Bucket,
		AssignedAt: assignment.AssignedAt,
	}
}

// queueRemoteSync persists a freshly computed assignment in the background.
// The visitor response never waits on it.
func (s *Service) queueRemoteSync(ctx context.Context, userID, experimentName string, cached CachedAssignment) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timeout := s.cfg.SyncTimeout
		if timeout <= 0 {
			timeout = 3 * time.Second
		}
		// Detached from the request context: the response has already been
		// served by the time this runs.
		syncCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.persistAssignment(syncCtx, userID, experimentName, cached, enums.EventAssignmentCreated, nil); err != nil {
			s.metrics.IncSyncFailure(experimentName)
			s.logg.Warn(s.assignmentCtx(context.Background(), userID, experimentName, err.Error()), "background assignment sync failed")
			return
		}
		s.metrics.IncSyncSuccess(experimentName)
	}()
}

// persistAssignment upserts the authoritative row and emits the matching
// event atomically.
func (s *Service) persistAssignment(ctx context.Context, userID, experimentName string, cached CachedAssignment, eventType enums.OutboxEventType, actor *outbox.ActorRef) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		assignment := &models.VariantAssignment{
			UserID:         userID,
			ExperimentName: experimentName,
			Variant:        cached.Variant,
			Bucket:         cached.Bucket,
			AssignedAt:     cached.AssignedAt,
		}
		if err := repo.Upsert(ctx, assignment); err != nil {
			return err
		}
		stored, err := repo.Find(ctx, userID, experimentName)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("assignment vanished after upsert")
		}

		var data any
		if eventType == enums.EventAssignmentForced {
			data = outbox.AssignmentForcedV1{
				UserID:         userID,
				ExperimentName: experimentName,
				Variant:        cached.Variant,
				AssignedAt:     cached.AssignedAt,
			}
		} else {
			data = outbox.AssignmentCreatedV1{
				UserID:         userID,
				ExperimentName: experimentName,
				Variant:        cached.Variant,
				Bucket:         cached.Bucket,
				AssignedAt:     cached.AssignedAt,
			}
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateVariantAssignment,
			AggregateID:   stored.ID,
			Actor:         actor,
			Version:       1,
			Data:          data,
		})
	})
}

// ForceAssignVariant pins a user to a variant regardless of their bucket. The
// stored bucket is the forced sentinel so reporting can exclude these rows.
func (s *Service) ForceAssignVariant(ctx context.Context, userID, experimentName, variant, adminID string) (*AssignmentView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(variant) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant is required")
	}

	assigner, _, err := s.experiments.AssignerFor(ctx, experimentName)
	if err != nil {
		return nil, err
	}
	if _, ok := assigner.Split()[variant]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("variant %q is not part of experiment %q", variant, experimentName))
	}

	cached := CachedAssignment{
		Variant:    variant,
		Bucket:     ForcedBucket,
		AssignedAt: s.now().UTC(),
	}
	var actor *outbox.ActorRef
	if adminID != "" {
		actor = &outbox.ActorRef{AdminID: adminID, Role: string(enums.AdminRoleAdmin)}
	}
	if err := s.persistAssignment(ctx, userID, experimentName, cached, enums.EventAssignmentForced, actor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "forcing assignment")
	}
	s.storeCached(ctx, userID, experimentName, cached)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID,
		"experiment": experimentName,
		"variant":    variant,
	})
	s.logg.Info(logCtx, "assignment forced")

	return &AssignmentView{
		UserID:         userID,
		ExperimentName: experimentName,
		Variant:        variant,
		Bucket:         ForcedBucket,
		Forced:         true,
		AssignedAt:     cached.AssignedAt,
	}, nil
}

// ClearStoredVariant removes one cached assignment. The remote store is
// untouched.
func (s *Service) ClearStoredVariant(ctx context.Context, userID, experimentName string) error {
	return s.cache.Del(ctx, s.cache.VariantKey(userID, experimentName))
}

// ClearAllStoredVariants removes every cached assignment for the user. The
// remote store is untouched.
func (s *Service) ClearAllStoredVariants(ctx context.Context, userID string) error {
	keys, err := s.cache.ScanPrefix(ctx, s.cache.VariantKeyPrefix(userID))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.cache.Del(ctx, keys...)
}

// SyncAllVariantsToRemote pushes the user's cached assignments to the remote
// store, typically right after login binds an anonymous session to an
// account. Each experiment syncs independently; failures are collected, never
// short-circuiting the rest.
func (s *Service) SyncAllVariantsToRemote(ctx context.Context, userID string, experimentNames []string) ([]SyncOutcome, error) {
	if len(experimentNames) == 0 {
		discovered, err := s.discoverCachedExperiments(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "discovering cached assignments")
		}
		experimentNames = discovered
	}

	timeout := s.cfg.SyncTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	outcomes := make([]SyncOutcome, 0, len(experimentNames))
	var aggregated error
	for _, experimentName := range experimentNames {
		cached := s.GetStoredVariant(ctx, userID, experimentName)
		if cached == nil {
			outcomes = append(outcomes, SyncOutcome{ExperimentName: experimentName})
			continue
		}

		syncCtx, cancel := context.WithTimeout(ctx, timeout)
		err := s.repo.Upsert(syncCtx, &models.VariantAssignment{
			UserID:         userID,
			ExperimentName: experimentName,
			Variant:        cached.Variant,
			Bucket:         cached.Bucket,
			AssignedAt:     cached.AssignedAt,
		})
		cancel()

		outcome := SyncOutcome{
			ExperimentName: experimentName,
			Variant:        cached.Variant,
			Synced:         err == nil,
		}
		if err != nil {
			outcome.Error = err.Error()
			aggregated = multierr.Append(aggregated, fmt.Errorf("sync %s: %w", experimentName, err))
			s.metrics.IncSyncFailure(experimentName)
		} else {
			s.metrics.IncSyncSuccess(experimentName)
		}
		outcomes = append(outcomes, outcome)
	}

	if aggregated != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID), "variant sync completed with failures: "+aggregated.Error())
	}
	return outcomes, aggregated
}

func (s *Service) discoverCachedExperiments(ctx context.Context, userID string) ([]string, error) {
	prefix := s.cache.VariantKeyPrefix(userID)
	keys, err := s.cache.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, prefix))
	}
	return names, nil
}

// ListByExperiment exposes stored assignments for the admin dashboard.
func (s *Service) ListByExperiment(ctx context.Context, experimentName string, since, until time.Time) ([]AssignmentView, error) {
	rows, err := s.repo.ListByExperiment(ctx, experimentName, since, until)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing assignments")
	}
	return assignmentViews(rows), nil
}

// ListByUser exposes every stored assignment for one user, across experiments.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]AssignmentView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing user assignments")
	}
	return assignmentViews(rows), nil
}

func assignmentViews(rows []models.VariantAssignment) []AssignmentView {
	views := make([]AssignmentView, 0, len(rows))
	for _, row := range rows {
		views = append(views, AssignmentView{
			UserID:         row.UserID,
			ExperimentName: row.ExperimentName,
			Variant:        row.Variant,
			Bucket:         row.Bucket,
			Forced:         row.Bucket < 0,
			AssignedAt:     row.AssignedAt,
		})
	}
	return views
}

func (s *Service) assignmentCtx(ctx context.Context, userID, experimentName, detail string) context.Context {
	return s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID,
		"experiment": experimentName,
		"detail":     detail,
	})
}
