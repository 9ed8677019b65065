package reader

import (
	"errors"
	"log/slog"
	"path/filepath"

	"nascam/internal/container"
	"nascam/internal/failure"
	"nascam/internal/frame"
	"nascam/internal/logging"
	"nascam/internal/metadata"
)

// MemberFailure records a frame inside a container that could not be read
// while other members of the same file were.
type MemberFailure struct {
	File    string `json:"file"`
	Member  string `json:"member"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// FileResult is the outcome of reading one input path.
type FileResult struct {
	Path           string
	Stack          *frame.Stack
	Metadata       []metadata.FrameMetadata
	Bytes          int64
	MemberFailures []MemberFailure
	Err            error
}

type fileProcessor struct {
	resolver *container.Resolver
	decoder  *frame.Decoder
	logger   *slog.Logger
}

// process reads every member of path into a private stack. The extraction
// directory, if any, is always cleaned up before returning.
func (p *fileProcessor) process(path string) FileResult {
	result := FileResult{Path: path}

	res, err := p.resolver.Resolve(path)
	if err != nil {
		result.Err = err
		return result
	}
	defer func() {
		_ = p.resolver.Cleanup(res)
	}()

	stack := frame.NewStack(frame.Signature{}, len(res.Members))
	metas := make([]metadata.FrameMetadata, 0, len(res.Members))
	var failures []MemberFailure

	for _, member := range res.Members {
		meta, err := metadata.Parse(member)
		if err != nil {
			failures = append(failures, p.memberFailure(path, member, err))
			continue
		}
		f, n, err := p.decoder.DecodeFile(member)
		if err != nil {
			failures = append(failures, p.memberFailure(path, member, err))
			continue
		}
		if err := stack.Append(f); err != nil {
			if errors.Is(err, failure.ErrDimensionMismatch) {
				result.Err = failure.Wrap(failure.ErrDimensionMismatch, path, "stack member", filepath.Base(member), err)
				return result
			}
			failures = append(failures, p.memberFailure(path, member, err))
			continue
		}
		meta.SourceFile = path
		metas = append(metas, meta)
		result.Bytes += n
	}

	if stack.Len() == 0 {
		if len(failures) > 0 {
			result.Err = failures[0].Err
		} else {
			result.Err = failure.Wrap(failure.ErrFileProcessing, path, "read members", "no frames decoded", nil)
		}
		result.Bytes = 0
		return result
	}

	stack.Trim()
	result.Stack = stack
	result.Metadata = metas
	result.MemberFailures = failures
	return result
}

func (p *fileProcessor) memberFailure(path, member string, err error) MemberFailure {
	p.logger.Debug("skipping unreadable member",
		logging.String(logging.FieldFile, path),
		logging.String(logging.FieldMember, filepath.Base(member)),
		logging.String(logging.FieldErrorKind, failure.Kind(err)),
		logging.Error(err),
	)
	return MemberFailure{
		File:    path,
		Member:  filepath.Base(member),
		Kind:    failure.Kind(err),
		Message: err.Error(),
		Err:     err,
	}
}
