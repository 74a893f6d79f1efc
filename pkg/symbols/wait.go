// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package symbols

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var errNotMapped = errors.New("runtime module not mapped yet")

// logEvery limits "still waiting" messages to one per this many attempts.
const logEvery = 30

// WaitForModule polls until one of names is mapped into the process and
// returns the first match. There is no retry budget, only the fixed
// interval between attempts. It returns an error only when ctx is done.
func WaitForModule(ctx context.Context, r Resolver, names []string, interval time.Duration, logger *zap.Logger) (string, Module, error) {
	var (
		found    string
		module   Module
		attempts int
	)

	err := retry.Do(ctx, retry.NewConstant(interval), func(ctx context.Context) error {
		attempts++
		for _, name := range names {
			if m, ok := r.Lookup(name); ok {
				found, module = name, m
				return nil
			}
		}
		if attempts == 1 || attempts%logEvery == 0 {
			logger.Info("waiting for runtime module",
				zap.Strings("candidates", names),
				zap.Int("attempts", attempts),
				zap.Duration("interval", interval),
			)
		}
		return retry.RetryableError(errNotMapped)
	})
	if err != nil {
		return "", 0, err
	}

	logger.Info("runtime module mapped",
		zap.String("module", found),
		zap.Stringer("handle", module),
		zap.Int("attempts", attempts),
	)
	return found, module, nil
}
