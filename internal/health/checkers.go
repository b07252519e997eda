// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"time"
)

type funcChecker struct {
	name    string
	onError Status
	timeout time.Duration
	fn      func(context.Context) error
}

// NewFuncChecker wraps fn as a checker. A returned error reports onError;
// timeout bounds each run when positive.
func NewFuncChecker(name string, onError Status, timeout time.Duration, fn func(context.Context) error) Checker {
	return &funcChecker{name: name, onError: onError, timeout: timeout, fn: fn}
}

func (c *funcChecker) Name() string { return c.name }

func (c *funcChecker) Check(ctx context.Context) CheckResult {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.fn(ctx); err != nil {
		return CheckResult{Status: c.onError, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// LastRunChecker reports on a periodic job from its last success and last error.
type LastRunChecker struct {
	name    string
	maxAge  time.Duration
	lastRun func() (lastSuccess time.Time, lastError string)
}

// NewLastRunChecker creates a checker for last job run status. Runs older
// than maxAge are degraded.
func NewLastRunChecker(name string, maxAge time.Duration, lastRun func() (time.Time, string)) *LastRunChecker {
	return &LastRunChecker{name: name, maxAge: maxAge, lastRun: lastRun}
}

func (c *LastRunChecker) Name() string {
	return c.name
}

func (c *LastRunChecker) Check(context.Context) CheckResult {
	lastSuccess, lastError := c.lastRun()

	switch {
	case lastSuccess.IsZero() && lastError == "":
		return CheckResult{Status: StatusDegraded, Message: "no run yet"}
	case lastSuccess.IsZero():
		return CheckResult{Status: StatusUnhealthy, Error: lastError, Message: "no successful run yet"}
	case lastError != "":
		return CheckResult{Status: StatusDegraded, Error: lastError, Message: "last run failed"}
	case c.maxAge > 0 && time.Since(lastSuccess) > c.maxAge:
		return CheckResult{Status: StatusDegraded, Message: "last successful run is stale"}
	}
	return CheckResult{Status: StatusHealthy, Message: "last run successful"}
}
