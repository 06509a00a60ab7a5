package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go-leave/internal/identity"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const balanceKeyPrefix = "leave:balance:"

func balanceKey(subjectID string, year int) string {
	return fmt.Sprintf("%s%s:%d", balanceKeyPrefix, subjectID, year)
}

// CategoryBalance is one line of a balance report. Allotment is the
// original annual grant reconstructed as remaining + consumed; Available
// is the stored remaining pool and the value the submit projection uses.
type CategoryBalance struct {
	Allotment string `json:"allotment"`
	Consumed  string `json:"consumed"`
	Available string `json:"available"`
}

// ledger owns the entitlement pool: an advisory projection at submission
// and the authoritative, exactly-once debit at final approval. The stored
// allotment is the remaining pool, so projection is a plain read, never a
// read-then-write.
type ledger struct {
	dir    Directory
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func newLedger(dir Directory, repo Repository, rdb *redis.Client, logger *zap.Logger) *ledger {
	return &ledger{
		dir:    dir,
		repo:   repo,
		rdb:    rdb,
		sf:     &singleflight.Group{},
		logger: logger.Named("ledger"),
	}
}

// projectedAvailable returns the remaining pool for a tracked category.
// tracked is false for categories that impose no limit.
func (l *ledger) projectedAvailable(ctx context.Context, subjectID, category string, year int) (decimal.Decimal, bool, error) {
	return l.dir.Allotment(ctx, subjectID, category, year)
}

// debit decrements the stored pool by amount on the caller's
// transaction, so a failed status write rolls the debit back with it.
// Untracked categories are a no-op. Callers must hold the per-request
// lock; the lifecycle invokes this exactly once, on the transition into
// APPROVED.
func (l *ledger) debit(ctx context.Context, tx *sql.Tx, subjectID, category string, amount decimal.Decimal, year int) error {
	if _, tracked := identity.DefaultAllotment(category); !tracked {
		return nil
	}

	remaining, err := l.dir.AdjustAllotment(ctx, tx, subjectID, category, amount.Neg(), year)
	if err != nil {
		return err
	}

	l.invalidate(ctx, subjectID, year)
	l.logger.Info("entitlement debited",
		zap.String("subject_id", subjectID),
		zap.String("category", category),
		zap.Int("year", year),
		zap.String("amount", amount.String()),
		zap.String("remaining", remaining.String()),
	)
	return nil
}

// report builds the per-category balance view. Reads are deduplicated
// with singleflight and cached best-effort in redis; the debit path
// invalidates the cache.
func (l *ledger) report(ctx context.Context, subjectID string, year int) (map[string]CategoryBalance, error) {
	cacheKey := balanceKey(subjectID, year)

	if l.rdb != nil {
		if cached, err := l.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var out map[string]CategoryBalance
			if json.Unmarshal([]byte(cached), &out) == nil {
				return out, nil
			}
		}
	}

	v, err, _ := l.sf.Do(cacheKey, func() (interface{}, error) {
		out := make(map[string]CategoryBalance, len(identity.TrackedCategories()))
		for _, category := range identity.TrackedCategories() {
			remaining, _, err := l.dir.Allotment(ctx, subjectID, category, year)
			if err != nil {
				return nil, err
			}
			consumed, err := l.repo.SumApprovedDays(ctx, subjectID, category, year)
			if err != nil {
				return nil, err
			}
			out[category] = CategoryBalance{
				Allotment: remaining.Add(consumed).String(),
				Consumed:  consumed.String(),
				Available: remaining.String(),
			}
		}

		if l.rdb != nil {
			if payload, err := json.Marshal(out); err == nil {
				l.rdb.Set(ctx, cacheKey, payload, 5*time.Minute)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(map[string]CategoryBalance), nil
}

func (l *ledger) invalidate(ctx context.Context, subjectID string, year int) {
	if l.rdb == nil {
		return
	}
	cacheKey := balanceKey(subjectID, year)
	if err := l.rdb.Del(ctx, cacheKey).Err(); err != nil {
		l.logger.Error("invalidate balance cache failed",
			zap.String("key", cacheKey),
			zap.Error(err),
		)
	}
}
