// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval implements the best-effort multi-source retrieval
// fan-out and the order-preserving result merge that feed the prompt
// template engine.
package retrieval

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one independently fallible unit of work in a fan-out.
type Task[T any] struct {
	// Name labels the task in logs.
	Name string

	// Run executes the task. A non-nil error is recovered locally by
	// substituting the fallback value; it never fails the batch.
	Run func(ctx context.Context) (T, error)
}

// FanOutBestEffort runs all tasks concurrently and always returns one
// result per task, in task order.
//
// # Description
//
// A failure in one task does not cancel the others and does not fail the
// batch: the failed slot receives the fallback value and the error is
// logged at warn level. Callers that must distinguish "all failed" from
// "some failed" can inspect the returned error count.
//
// # Inputs
//
//   - ctx: Context shared by all tasks; cancellation stops in-flight work.
//   - tasks: The units of work to run. May be empty.
//   - fallback: Value substituted for any failed task.
//
// # Outputs
//
//   - []T: One entry per task, in the same order as tasks.
//   - int: Number of tasks that failed.
func FanOutBestEffort[T any](ctx context.Context, tasks []Task[T], fallback T) ([]T, int) {
	results := make([]T, len(tasks))
	errs := make([]error, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(slot int, t Task[T]) {
			defer wg.Done()
			value, err := t.Run(ctx)
			if err != nil {
				slog.Warn("Fan-out task failed, substituting fallback",
					"task", t.Name, "error", err)
				results[slot] = fallback
				errs[slot] = err
				return
			}
			results[slot] = value
		}(i, task)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	return results, failed
}
