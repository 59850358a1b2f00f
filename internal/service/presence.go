package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gelatohub/painel/internal/domain/presence"
	obserrors "github.com/gelatohub/painel/internal/observability/errors"
	"github.com/gelatohub/painel/internal/observability/metrics"
	"github.com/gelatohub/painel/internal/ports"
)

// PresenceServiceOptions groups dependencies for PresenceService.
type PresenceServiceOptions struct {
	Store         ports.PresenceStore // Required: heartbeat storage
	TTL           time.Duration       // Heartbeats older than TTL are offline
	SweepInterval time.Duration       // Run loop period
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// PresenceService tracks which users are online. Heartbeat failures are
// logged and swallowed; presence is never allowed to break a page.
type PresenceService struct {
	store    ports.PresenceStore
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewPresenceService constructs a PresenceService.
func NewPresenceService(opts PresenceServiceOptions) (*PresenceService, error) {
	if opts.Store == nil {
		return nil, errors.New("PresenceStore is required")
	}
	s := &PresenceService{
		store:    opts.Store,
		ttl:      opts.TTL,
		interval: opts.SweepInterval,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if s.ttl <= 0 {
		s.ttl = time.Minute
	}
	if s.interval <= 0 {
		s.interval = 30 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger.With("component", "presence_service")
	return s, nil
}

// Track records a heartbeat. A missing page defaults to presence.DefaultPage.
func (s *PresenceService) Track(ctx context.Context, e presence.Entry) {
	if e.UserID == "" {
		return
	}
	e.Page = normalizePage(e.Page)
	if e.OnlineAt.IsZero() {
		e.OnlineAt = s.now()
	}
	if err := s.store.Track(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "presence track failed", "user_id", e.UserID, "error", err)
	}
}

// Untrack removes the user from the online set.
func (s *PresenceService) Untrack(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if err := s.store.Remove(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "presence untrack failed", "user_id", userID, "error", err)
	}
}

// Count returns the number of users seen within the TTL.
func (s *PresenceService) Count(ctx context.Context) int {
	n, err := s.store.Count(ctx, s.cutoff())
	if err != nil {
		s.logger.WarnContext(ctx, "presence count failed", "error", err)
		return 0
	}
	s.metrics.SetOnlineUsers(n)
	return n
}

// Online returns the users seen within the TTL.
func (s *PresenceService) Online(ctx context.Context) presence.Snapshot {
	users, err := s.store.Online(ctx, s.cutoff())
	if err != nil {
		s.logger.WarnContext(ctx, "presence listing failed", "error", err)
		return presence.Snapshot{Users: []presence.Entry{}}
	}
	if users == nil {
		users = []presence.Entry{}
	}
	s.metrics.SetOnlineUsers(len(users))
	return presence.Snapshot{Count: len(users), Users: users}
}

// Sweep removes stale heartbeats and returns how many were pruned.
func (s *PresenceService) Sweep(ctx context.Context) (int, error) {
	n, err := s.store.Prune(ctx, s.cutoff())
	if err != nil {
		return 0, fmt.Errorf("prune presence: %w", err)
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "presence swept", "pruned", n)
	}
	return n, nil
}

// Run sweeps at the configured interval until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *PresenceService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting presence sweeper", "interval", s.interval, "ttl", s.ttl)

	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)
	return s.runLoop(ctx, ticker)
}

func (s *PresenceService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "presence sweeper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *PresenceService) sweepOnce(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.ErrorContext(ctx, "presence sweep failed", "error", err, "error_class", obserrors.Classify(err))
		return
	}
	s.Count(ctx)
}

// waitWithJitter delays up to 10% of the interval so replicas do not sweep in lockstep.
func (s *PresenceService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (s *PresenceService) cutoff() time.Time {
	return s.now().Add(-s.ttl)
}

// normalizePage keeps the last path segment, as heartbeats may send a full path.
func normalizePage(page string) string {
	page = strings.TrimSpace(page)
	if i := strings.LastIndex(page, "/"); i >= 0 {
		page = page[i+1:]
	}
	if page == "" {
		return presence.DefaultPage
	}
	return page
}
