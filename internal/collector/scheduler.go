package collector

import (
	"context"
	"errors"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"github.com/roylee0704/gron"
	"github.com/roylee0704/gron/xtime"
	"github.com/spf13/cast"
	"go.uber.org/atomic"
	"instametrics/internal/collector/interfaces"
	"instametrics/internal/graph"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/repository"
	"instametrics/internal/services"
	"instametrics/internal/structures"
	"sync"
	"time"
)

const (
	JobSnapshot = "snapshot"
	JobPurge    = "purge"
	JobRefresh  = "token_refresh"

	followerCountMetric  = "follower_count"
	defaultRetentionDays = 90
	runTimeout           = 10 * time.Minute
)

var ErrNoFollowerCount = errors.New("collector: upstream returned no follower count")

type Scheduler struct {
	config     *structures.Config
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
	client     graph.ClientInterface
	creds      repository.CredentialRepository
	history    repository.HistoryRepository
	growth     services.GrowthServiceInterface
	registry   services.RegistryServiceInterface
	archive    *Archive
	cron       *gron.Cron
	opsMu      sync.Mutex
	running    *atomic.Bool
	lastRun    *atomic.Time
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = time.Minute
	return b
}

func (s *Scheduler) Init() {
	if !s.config.Collector.Enabled {
		s.logger.Infof(providers.TypeCollector, "Collector disabled")
		return
	}

	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(xtime.Day).At(s.config.Collector.At), func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if err := s.RunNow(ctx); err != nil {
			s.logger.Errorf(providers.TypeCollector, "Collector run finished with errors: %s", err)
			return
		}
		s.logger.Infof(providers.TypeCollector, "Collector run finished")
	})
	s.cron.Start()
	s.logger.Infof(providers.TypeCollector, "Collector scheduled daily at %s", s.config.Collector.At)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.archive.Close()
}

func (s *Scheduler) LastRun() time.Time {
	return s.lastRun.Load()
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// RunNow refreshes expiring tokens, records today's follower counts and
// applies the retention policy. A failing job does not stop the others.
func (s *Scheduler) RunNow(ctx context.Context) error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	start := s.now()
	err := errors.Join(
		s.runJob(ctx, JobRefresh, s.refreshTokens),
		s.runJob(ctx, JobSnapshot, s.collectSnapshots),
		s.runJob(ctx, JobPurge, s.purge),
	)
	s.lastRun.Store(start)
	return err
}

func (s *Scheduler) runJob(ctx context.Context, job string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveCollectorDuration(job, time.Since(start))

	if err != nil {
		s.metrics.IncCollectorRuns(job, "failure")
		s.logger.Errorf(providers.TypeCollector, "Collector job %s failed: %s", job, err)
		return fmt.Errorf("%s: %w", job, err)
	}
	s.metrics.IncCollectorRuns(job, "success")
	return nil
}

func (s *Scheduler) refreshTokens(ctx context.Context) error {
	n, err := s.registry.RefreshExpiring(ctx, s.config.Collector.RefreshWithin)
	if n > 0 {
		s.logger.Infof(providers.TypeCollector, "Refreshed %d access tokens", n)
	}
	return err
}

func (s *Scheduler) collectSnapshots(ctx context.Context) error {
	creds, err := s.creds.ListActive(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	seen := make(map[string]struct{}, len(creds))
	recorded := 0
	var errs []error
	for _, c := range creds {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if _, ok := seen[c.InstagramAccountID]; ok {
			continue
		}
		seen[c.InstagramAccountID] = struct{}{}

		if !c.ExpiresAt.After(now) {
			s.logger.Warnf(providers.TypeCollector, "Skipping account %s, access token expired at %s",
				c.InstagramAccountID, c.ExpiresAt.Format(time.RFC3339))
			continue
		}

		count, err := s.followerCount(ctx, c)
		if err != nil {
			if graph.IsTokenExpired(err) {
				s.logger.Warnf(providers.TypeCollector, "Access token for account %s needs refresh", c.InstagramAccountID)
			}
			errs = append(errs, fmt.Errorf("account %s: %w", c.InstagramAccountID, err))
			continue
		}

		if err := s.growth.RecordSnapshot(ctx, c.InstagramAccountID, count, now); err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", c.InstagramAccountID, err))
			continue
		}
		s.logger.Infof(providers.TypeCollector, "Recorded %d followers for account %s", count, c.InstagramAccountID)
		recorded++
	}

	s.logger.Infof(providers.TypeCollector, "Snapshot job recorded %d of %d accounts", recorded, len(seen))
	return errors.Join(errs...)
}

// followerCount retries transport and upstream failures. An expired token,
// a cancelled context or a zero count end the attempts at once.
func (s *Scheduler) followerCount(ctx context.Context, c models.AccountCredential) (int64, error) {
	var count int64
	op := func() error {
		series, err := s.client.AccountInsights(ctx, c.InstagramAccountID, c.AccessToken, graph.InsightQuery{
			Metrics: []string{followerCountMetric},
			Period:  services.DefaultPeriod,
		})
		if err != nil {
			if graph.IsTokenExpired(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		count = firstCount(series)
		if count <= 0 {
			return backoff.Permanent(ErrNoFollowerCount)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.config.Collector.MaxRetries), ctx)
	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		s.logger.Warnf(providers.TypeCollector, "Follower count for account %s failed, retrying in %s: %s",
			c.InstagramAccountID, wait, err)
	})
	return count, err
}

func firstCount(series []models.InsightSeries) int64 {
	for _, sr := range series {
		if sr.Name != followerCountMetric || len(sr.Values) == 0 {
			continue
		}
		n, err := cast.ToInt64E(sr.Values[0].Value)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// purge archives and deletes snapshots dated before the retention cutoff.
// Nothing is deleted when the archive cannot be written.
func (s *Scheduler) purge(ctx context.Context) error {
	days := s.config.Collector.RetentionDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	now := s.now()
	cutoff := models.Day(now.UTC()).AddDate(0, 0, -days)

	if s.archive.Enabled() {
		old, err := s.history.OlderThan(ctx, cutoff)
		if err != nil {
			return err
		}
		path, err := s.archive.Write(cutoff, old, now)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		if path != "" {
			s.logger.Infof(providers.TypeCollector, "Archived %d snapshots to %s", len(old), path)
		}
	}

	n, err := s.history.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	s.metrics.AddSnapshotsPurged(int(n))
	if n > 0 {
		s.logger.Infof(providers.TypeCollector, "Purged %d snapshots older than %s", n, cutoff.Format(models.DateLayout))
	}
	return nil
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	client graph.ClientInterface,
	creds repository.CredentialRepository,
	history repository.HistoryRepository,
	growth services.GrowthServiceInterface,
	registry services.RegistryServiceInterface,
	archive *Archive,
) interfaces.SchedulerInterface {
	return newScheduler(config, logger, metrics, client, creds, history, growth, registry, archive)
}

func newScheduler(
	config *structures.Config,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	client graph.ClientInterface,
	creds repository.CredentialRepository,
	history repository.HistoryRepository,
	growth services.GrowthServiceInterface,
	registry services.RegistryServiceInterface,
	archive *Archive,
) *Scheduler {
	return &Scheduler{
		config:     config,
		logger:     logger,
		metrics:    metrics,
		client:     client,
		creds:      creds,
		history:    history,
		growth:     growth,
		registry:   registry,
		archive:    archive,
		running:    atomic.NewBool(false),
		lastRun:    atomic.NewTime(time.Time{}),
		now:        time.Now,
		newBackOff: defaultBackOff,
	}
}
