package services

import (
	"context"
	"time"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"

	"github.com/robfig/cron/v3"
)

// StatsService periodically derives the aggregate view through the
// engine's query operations and caches it. Only the elected leader
// refreshes, so a fleet of replicas produces one snapshot stream.
type StatsService struct {
	engine         *AuctionEngine
	cache          domain.StatsCache
	leaderElection domain.LeaderElection
	instanceID     string
	cron           *cron.Cron
	log            logger.Logger
}

func NewStatsService(engine *AuctionEngine, cache domain.StatsCache,
	leaderElection domain.LeaderElection, instanceID string, log logger.Logger) *StatsService {
	return &StatsService{
		engine:         engine,
		cache:          cache,
		leaderElection: leaderElection,
		instanceID:     instanceID,
		cron:           cron.New(),
		log:            log,
	}
}

func (s *StatsService) Start(ctx context.Context, refreshSpec string) error {
	s.log.Info("Starting stats refresher", "spec", refreshSpec)

	_, err := s.cron.AddFunc(refreshSpec, func() {
		s.refresh(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *StatsService) Stop() error {
	s.log.Info("Stopping stats refresher")
	s.cron.Stop()
	return nil
}

// ComputeSnapshot derives the aggregate facts with a live scan.
func (s *StatsService) ComputeSnapshot(ctx context.Context) (*domain.StatsSnapshot, error) {
	count, err := s.engine.CountItems(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.engine.ListActiveItems(ctx)
	if err != nil {
		return nil, err
	}

	highest, err := s.engine.HighestSaleItem(ctx)
	if err != nil {
		return nil, err
	}

	mostBid, err := s.engine.MostBidItem(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.StatsSnapshot{
		ItemCount:   count,
		ActiveCount: uint64(len(active)),
		RefreshedAt: time.Now(),
	}
	if highest != nil {
		snapshot.HighestSaleID = highest.ID
		snapshot.HighestSale = highest.Amount
		snapshot.HasHighestSale = true
	}
	if mostBid != nil {
		snapshot.MostBidID = mostBid.ID
		snapshot.MostBidCount = len(mostBid.Bids)
		snapshot.HasMostBid = true
	}

	return snapshot, nil
}

// Snapshot serves the cached view, falling back to a live scan when the
// cache is cold or unreachable.
func (s *StatsService) Snapshot(ctx context.Context) (*domain.StatsSnapshot, error) {
	if s.cache != nil {
		snapshot, err := s.cache.GetSnapshot(ctx)
		if err == nil {
			return snapshot, nil
		}
		s.log.Debug("Stats cache miss, computing live", "error", err)
	}
	return s.ComputeSnapshot(ctx)
}

func (s *StatsService) refresh(ctx context.Context) {
	// Nothing to refresh into without a cache; Snapshot computes live.
	if s.cache == nil {
		return
	}

	if s.leaderElection != nil {
		isLeader, err := s.leaderElection.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Failed to check leadership", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	snapshot, err := s.ComputeSnapshot(ctx)
	if err != nil {
		s.log.Error("Failed to compute stats snapshot", "error", err)
		return
	}

	if err := s.cache.SetSnapshot(ctx, snapshot); err != nil {
		s.log.Error("Failed to cache stats snapshot", "error", err)
		return
	}

	s.log.Info("Stats snapshot refreshed",
		"item_count", snapshot.ItemCount, "active_count", snapshot.ActiveCount)
}
