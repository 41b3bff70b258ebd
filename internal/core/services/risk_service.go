package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nmehta6/churnbank/internal/apperrors"
	"github.com/nmehta6/churnbank/internal/core/domain"
	portsrepo "github.com/nmehta6/churnbank/internal/core/ports/repositories"
	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
	"github.com/nmehta6/churnbank/internal/middleware"
)

const (
	degradedProbability = 0.5
	riskCacheKeyPrefix  = "churnbank:risk:"
)

// riskService derives a deterministic feature snapshot from committed ledger
// state and turns the scorer's probability into a stored risk tier. It reads
// only committed state and never runs inside a processor critical section.
type riskService struct {
	ledgerRepo portsrepo.LedgerRepository
	logRepo    portsrepo.TransactionLogRepository
	scorer     portssvc.ChurnScorer     // nil means degraded mode
	profiles   portssvc.ProfileProvider // nil falls back to domain.DefaultProfile
	cache      *redis.Client            // nil disables caching
	cacheTTL   time.Duration
}

// NewRiskService creates the risk service. scorer, profiles and cache may all
// be nil; the service degrades gracefully without them.
func NewRiskService(ledgerRepo portsrepo.LedgerRepository, logRepo portsrepo.TransactionLogRepository, scorer portssvc.ChurnScorer, profiles portssvc.ProfileProvider, cache *redis.Client, cacheTTL time.Duration) portssvc.RiskSvcFacade {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &riskService{
		ledgerRepo: ledgerRepo,
		logRepo:    logRepo,
		scorer:     scorer,
		profiles:   profiles,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

var _ portssvc.RiskSvcFacade = (*riskService)(nil)

// ComputeRisk builds the feature snapshot for one account, scores it and
// stores the resulting tier back on the account record. A missing or failing
// scorer yields the fixed default (probability 0.5, tier MEDIUM) marked
// degraded instead of an error.
func (s *riskService) ComputeRisk(ctx context.Context, accountID string) (*domain.RiskAssessment, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.ledgerRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	if cached := s.cachedAssessment(ctx, accountID); cached != nil {
		logger.Debug("Risk assessment served from cache", slog.String("account_id", accountID))
		return cached, nil
	}

	snapshot, err := s.buildSnapshot(ctx, *account)
	if err != nil {
		return nil, err
	}

	assessment := s.score(ctx, logger, snapshot)

	if err := s.ledgerRepo.UpdateRiskTier(ctx, accountID, assessment.Tier, assessment.ComputedAt); err != nil {
		logger.Error("Failed to store risk tier", slog.String("account_id", accountID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to store risk tier: %w", err)
	}

	s.storeAssessment(ctx, logger, assessment)

	logger.Info("Risk computed",
		slog.String("account_id", accountID),
		slog.Float64("probability", assessment.Probability),
		slog.String("tier", string(assessment.Tier)),
		slog.Bool("degraded", assessment.Degraded),
	)
	return assessment, nil
}

// buildSnapshot assembles the fixed feature layout from the account's current
// balance, its full log aggregate and the external profile. Identical
// underlying state always produces an identical snapshot.
func (s *riskService) buildSnapshot(ctx context.Context, account domain.Account) (domain.FeatureSnapshot, error) {
	agg, err := s.logRepo.AggregateByAccount(ctx, account.AccountID)
	if err != nil {
		return domain.FeatureSnapshot{}, fmt.Errorf("failed to aggregate transactions for %s: %w", account.AccountID, err)
	}

	profile := domain.DefaultProfile()
	if s.profiles != nil {
		p, err := s.profiles.ProfileForAccount(ctx, account.AccountID)
		if err != nil {
			middleware.GetLoggerFromCtx(ctx).Warn("Profile lookup failed, using defaults", slog.String("account_id", account.AccountID), slog.String("error", err.Error()))
		} else {
			profile = p
		}
	}

	return domain.NewFeatureSnapshot(account, profile, agg.Count, agg.Sum), nil
}

func (s *riskService) score(ctx context.Context, logger *slog.Logger, snapshot domain.FeatureSnapshot) *domain.RiskAssessment {
	now := time.Now().UTC()
	if s.scorer == nil {
		return &domain.RiskAssessment{
			AccountID:   snapshot.AccountID,
			Probability: degradedProbability,
			Tier:        domain.TierForProbability(degradedProbability),
			Degraded:    true,
			ComputedAt:  now,
		}
	}

	probability, err := s.scorer.Score(ctx, snapshot)
	if err != nil {
		logger.Warn("Scorer failed, applying degraded default",
			slog.String("account_id", snapshot.AccountID),
			slog.String("error", errors.Join(apperrors.ErrScoringUnavailable, err).Error()),
		)
		return &domain.RiskAssessment{
			AccountID:   snapshot.AccountID,
			Probability: degradedProbability,
			Tier:        domain.TierForProbability(degradedProbability),
			Degraded:    true,
			ComputedAt:  now,
		}
	}

	return &domain.RiskAssessment{
		AccountID:   snapshot.AccountID,
		Probability: probability,
		Tier:        domain.TierForProbability(probability),
		ComputedAt:  now,
	}
}

// InvalidateRisk drops the cached assessment for one account.
func (s *riskService) InvalidateRisk(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, riskCacheKeyPrefix+accountID).Err(); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to invalidate cached risk assessment", slog.String("account_id", accountID), slog.String("error", err.Error()))
	}
}

func (s *riskService) cachedAssessment(ctx context.Context, accountID string) *domain.RiskAssessment {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, riskCacheKeyPrefix+accountID).Bytes()
	if err != nil {
		return nil // miss or cache down; recompute either way
	}
	var assessment domain.RiskAssessment
	if err := json.Unmarshal(raw, &assessment); err != nil {
		return nil
	}
	return &assessment
}

func (s *riskService) storeAssessment(ctx context.Context, logger *slog.Logger, assessment *domain.RiskAssessment) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(assessment)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, riskCacheKeyPrefix+assessment.AccountID, raw, s.cacheTTL).Err(); err != nil {
		logger.Warn("Failed to cache risk assessment", slog.String("account_id", assessment.AccountID), slog.String("error", err.Error()))
	}
}
