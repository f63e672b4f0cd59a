package service

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"time"
)

// ServiceTier buckets users by portfolio value.
type ServiceTier string

const (
	TierFree         ServiceTier = "Free"
	TierProfessional ServiceTier = "Professional"
	TierEnterprise   ServiceTier = "Enterprise"
)

const (
	professionalTierThresholdEur = 10_000
	enterpriseTierThresholdEur   = 1_000_000

	// algoEurPrice is a placeholder rate until valuation is backed by a
	// price feed.
	algoEurPrice = 0.20

	portfolioSummaryKeyPrefix = "portfolio_summary:"
	portfolioCacheTTL         = time.Hour
)

// PortfolioSummary describes the value and tier of a user's holdings.
type PortfolioSummary struct {
	TotalValueEur   float64     `json:"totalValueEur"`
	CurrentTier     ServiceTier `json:"currentTier"`
	LastUpdated     time.Time   `json:"lastUpdated"`
	AccountCount    int         `json:"accountCount"`
	AlgorandBalance float64     `json:"algorandBalance"`
	AssetValue      float64     `json:"assetValue"`
}

// PortfolioService estimates portfolio value per user. Valuation is a
// deterministic placeholder pending chain and price-feed integration; the
// caching and tier logic around it are real.
type PortfolioService struct {
	cache PairingCache
	now   func() time.Time
}

func NewPortfolioService(cache PairingCache) *PortfolioService {
	return &PortfolioService{cache: cache, now: time.Now}
}

// GetPortfolioSummary returns the cached summary when fresh, otherwise
// recomputes and caches it. Valuation errors degrade to an empty free-tier
// summary instead of failing the caller.
func (s *PortfolioService) GetPortfolioSummary(ctx context.Context, email string) *PortfolioSummary {
	key := portfolioSummaryKeyPrefix + email
	if payload, err := s.cache.Get(ctx, key); err == nil && len(payload) > 0 {
		var cached PortfolioSummary
		if err := json.Unmarshal(payload, &cached); err == nil && s.now().UTC().Sub(cached.LastUpdated) < portfolioCacheTTL {
			return &cached
		}
	}

	balance := mockAlgorandBalance(email)
	value := balance * algoEurPrice
	summary := &PortfolioSummary{
		TotalValueEur:   value,
		CurrentTier:     determineTier(value),
		LastUpdated:     s.now().UTC(),
		AccountCount:    1,
		AlgorandBalance: balance,
		AssetValue:      value,
	}

	if payload, err := json.Marshal(summary); err == nil {
		if err := s.cache.Set(ctx, key, payload, portfolioCacheTTL); err != nil {
			slog.Warn("portfolio summary cache write failed", "email", email, "error", err)
		}
	}
	return summary
}

// InvalidateValuation drops the cached summary so the next read recomputes.
func (s *PortfolioService) InvalidateValuation(ctx context.Context, email string) {
	if err := s.cache.Delete(ctx, portfolioSummaryKeyPrefix+email); err != nil {
		slog.Warn("portfolio summary invalidation failed", "email", email, "error", err)
	}
}

// mockAlgorandBalance derives a stable placeholder balance from the email so
// tiers are exercised without a chain lookup.
func mockAlgorandBalance(email string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return float64(h.Sum32() % 100_000)
}

func determineTier(valueEur float64) ServiceTier {
	switch {
	case valueEur < professionalTierThresholdEur:
		return TierFree
	case valueEur < enterpriseTierThresholdEur:
		return TierProfessional
	default:
		return TierEnterprise
	}
}
