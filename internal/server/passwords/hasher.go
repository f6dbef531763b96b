// Package passwords hashes and verifies user passwords with bcrypt on a
// bounded number of concurrent workers.
package passwords

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher returns a Hasher using the given bcrypt cost. At most workers
// hash or compare operations run at the same time.
func NewHasher(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if workers < 1 {
		workers = 1
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

// Hash returns a salted bcrypt hash of plaintext. Inputs longer than bcrypt
// accepts are a validation error; other failures are internal.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", common.ErrValidation)
		}
		return "", fmt.Errorf("%w: hash password: %v", common.ErrInternal, err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A malformed hash or a
// cancelled context is a non-match.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
