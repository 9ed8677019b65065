package reader

import (
	"context"
	"fmt"
	"sync"

	"nascam/internal/failure"
	"nascam/internal/logging"
)

// shard is a contiguous [start, end) range of the input list.
type shard struct {
	index int
	start int
	end   int
}

// shardOutput holds one shard's private, ordered results. When the shard's
// goroutine failed, err is set and files is discarded in favour of lost.
type shardOutput struct {
	files []FileResult
	lost  []string
	err   error
}

// splitShards partitions n items into at most w contiguous shards whose sizes
// differ by no more than one. It never returns an empty shard.
func splitShards(n, w int) []shard {
	if n <= 0 {
		return nil
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	base, extra := n/w, n%w
	shards := make([]shard, 0, w)
	start := 0
	for i := 0; i < w; i++ {
		size := base
		if i < extra {
			size++
		}
		shards = append(shards, shard{index: i, start: start, end: start + size})
		start += size
	}
	return shards
}

// dispatch processes paths across r.workers shards and returns the shard
// outputs in input order. A single shard runs on the calling goroutine.
func (r *run) dispatch(ctx context.Context, paths []string) []shardOutput {
	shards := splitShards(len(paths), r.workers)
	outputs := make([]shardOutput, len(shards))

	if len(shards) == 1 {
		outputs[0] = r.runShard(ctx, shards[0], paths)
		return outputs
	}

	var wg sync.WaitGroup
	for i, s := range shards {
		wg.Add(1)
		go func(i int, s shard) {
			defer wg.Done()
			outputs[i] = r.runShard(ctx, s, paths)
		}(i, s)
	}
	wg.Wait()
	return outputs
}

func (r *run) runShard(ctx context.Context, s shard, paths []string) (out shardOutput) {
	defer func() {
		if rec := recover(); rec != nil {
			out = shardOutput{
				lost: append([]string(nil), paths[s.start:s.end]...),
				err: failure.Wrap(failure.ErrWorkerFailure, "", "process shard",
					fmt.Sprintf("shard %d panicked: %v", s.index+1, rec), nil),
			}
			logging.ErrorWithContext(r.logger, "worker failed; shard results discarded", "worker_failed",
				logging.Int(logging.FieldShard, s.index+1),
				logging.Int("files", s.end-s.start),
				logging.Error(out.err),
				logging.String(logging.FieldErrorHint, "rerun the listed files with workers=1 to isolate the input"),
			)
		}
	}()

	out.files = make([]FileResult, 0, s.end-s.start)
	for _, path := range paths[s.start:s.end] {
		if ctx.Err() != nil {
			return out
		}
		fr := r.processor.process(path)
		out.files = append(out.files, fr)
		r.progress(fr)
	}
	return out
}
