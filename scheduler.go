package primordium

import "golang.org/x/sync/errgroup"

// shardCount bounds the fork-join fan-out for per-agent parallel phases; a
// fixed cap keeps goroutine overhead bounded regardless of population size
// (spec §5: "bounded worker pool", grounded on the teacher's
// parallel_processing.go worker-count constant).
const shardCount = 8

// ParallelOverIndices runs fn(i) for every i in [0, n) across up to
// shardCount goroutines, each owning a disjoint contiguous range. It blocks
// until every shard completes. fn must only read shared state and write to
// slots it alone owns (spec §5: "no phase within a tick shares mutable
// state across goroutines without a partition").
func ParallelOverIndices(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	shards := shardCount
	if shards > n {
		shards = n
	}
	shardSize := (n + shards - 1) / shards

	var eg errgroup.Group
	for s := 0; s < shards; s++ {
		lo := s * shardSize
		hi := lo + shardSize
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		lo, hi := lo, hi
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = eg.Wait()
}
