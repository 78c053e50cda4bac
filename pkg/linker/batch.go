// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"context"
	"runtime"
	"sync"
)

type (
	// Job is one independent link of a batch.
	Job struct {
		Name    string
		Inputs  []string
		Options Options
	}

	// JobResult is the outcome of one Job. Exactly one of Result and Err is set.
	JobResult struct {
		Name   string
		Result *Result
		Err    error
	}
)

// LinkAll runs jobs concurrently, at most parallelism at a time (GOMAXPROCS
// when parallelism < 1). Jobs share nothing but their inputs, which are
// opened read-only by each job. Results are returned in job order.
func LinkAll(ctx context.Context, jobs []Job, parallelism int) []JobResult {
	if parallelism < 1 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	results := make([]JobResult, len(jobs))
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Go(func() {
			sem <- struct{}{}
			defer func() { <-sem }()
			res, err := Link(ctx, job.Options, job.Inputs...)
			results[i] = JobResult{Name: job.Name, Result: res, Err: err}
		})
	}
	wg.Wait()
	return results
}
