// Package usecase implements market listing and search.
package usecase

import (
	"context"
	"fmt"
	"strings"

	"crypto_backend/internal/feature/markets/domain/entity"
	"crypto_backend/internal/shared/retry"
)

// CoinProvider abstracts the upstream market data API.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type CoinProvider interface {
	MarketsByPage(ctx context.Context, page int) ([]entity.Coin, error)
	MarketsByIDs(ctx context.Context, ids []string) ([]entity.Coin, error)
	SearchIDs(ctx context.Context, query string) ([]string, error)
}

// Policies groups the retry policy of each operation.
type Policies struct {
	List   retry.Policy
	Search retry.Policy
}

// MarketsUsecase provides market listings and search.
type MarketsUsecase struct {
	provider CoinProvider
	policies Policies
}

// NewMarketsUsecase creates a new MarketsUsecase.
func NewMarketsUsecase(p CoinProvider, policies Policies) *MarketsUsecase {
	return &MarketsUsecase{provider: p, policies: policies}
}

// ListPage returns one page of the market listing. Pages start at 1; smaller values are treated as 1.
// An empty page is reported as ErrNoData without retrying.
func (u *MarketsUsecase) ListPage(ctx context.Context, page int) ([]entity.Coin, error) {
	if page < 1 {
		page = 1
	}

	var coins []entity.Coin
	err := u.policies.List.Do(ctx, "markets list", func(ctx context.Context) error {
		out, err := u.provider.MarketsByPage(ctx, page)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return retry.Permanent(fmt.Errorf("page %d: %w", page, ErrNoData))
		}
		coins = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coins, nil
}

// Search resolves query to coin ids and returns their market rows, in search relevance order.
// Both upstream calls are retried together.
func (u *MarketsUsecase) Search(ctx context.Context, query string) ([]entity.Coin, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var coins []entity.Coin
	err := u.policies.Search.Do(ctx, "markets search", func(ctx context.Context) error {
		ids, err := u.provider.SearchIDs(ctx, query)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return retry.Permanent(fmt.Errorf("search %q: %w", query, ErrNoData))
		}
		out, err := u.provider.MarketsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return retry.Permanent(fmt.Errorf("search %q: %w", query, ErrNoData))
		}
		coins = orderByIDs(out, ids)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coins, nil
}

// ByIDs returns the market rows of the given ids. Blank ids are dropped.
func (u *MarketsUsecase) ByIDs(ctx context.Context, ids []string) ([]entity.Coin, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoData
	}

	coins, err := u.provider.MarketsByIDs(ctx, clean)
	if err != nil {
		return nil, err
	}
	if len(coins) == 0 {
		return nil, ErrNoData
	}
	return coins, nil
}

// orderByIDs sorts coins in the order of ids. Coins not in ids keep their relative order at the end.
func orderByIDs(coins []entity.Coin, ids []string) []entity.Coin {
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}
	out := make([]entity.Coin, 0, len(coins))
	var rest []entity.Coin
	byID := make(map[string]entity.Coin, len(coins))
	for _, c := range coins {
		if _, ok := rank[c.ID]; ok {
			byID[c.ID] = c
			continue
		}
		rest = append(rest, c)
	}
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
			delete(byID, id)
		}
	}
	return append(out, rest...)
}
