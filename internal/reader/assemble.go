package reader

import (
	"nascam/internal/failure"
	"nascam/internal/frame"
	"nascam/internal/metadata"
)

// Problem is an input path that contributed no frames to the batch.
type Problem struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func newProblem(path string, err error) Problem {
	return Problem{Path: path, Kind: failure.Kind(err), Message: err.Error(), Err: err}
}

// assembler accumulates per-file results, in the order given, into one
// owning batch stack.
type assembler struct {
	fileCount      int
	stack          *frame.Stack
	metadata       []metadata.FrameMetadata
	problems       []Problem
	memberFailures []MemberFailure
	bytes          int64
}

func newAssembler(fileCount int) *assembler {
	return &assembler{fileCount: fileCount}
}

func (a *assembler) add(fr FileResult) {
	if fr.Err != nil {
		a.problems = append(a.problems, newProblem(fr.Path, fr.Err))
		return
	}
	if fr.Stack.Len() == 0 {
		a.problems = append(a.problems, newProblem(fr.Path,
			failure.Wrap(failure.ErrFileProcessing, fr.Path, "assemble", "no frames decoded", nil)))
		return
	}

	if a.stack == nil {
		// The first file fixes the batch signature and sizes the buffer on the
		// assumption that every file holds as many frames as this one.
		a.stack = frame.NewStack(fr.Stack.Signature(), a.fileCount*fr.Stack.Len())
	}
	if err := a.stack.AppendStack(fr.Stack); err != nil {
		a.problems = append(a.problems, newProblem(fr.Path,
			failure.Wrap(failure.ErrDimensionMismatch, fr.Path, "assemble",
				"expected "+a.stack.Signature().String()+", got "+fr.Stack.Signature().String(), nil)))
		return
	}
	a.metadata = append(a.metadata, fr.Metadata...)
	a.memberFailures = append(a.memberFailures, fr.MemberFailures...)
	a.bytes += fr.Bytes
}

// finish trims the batch buffer to its exact size. The assembler must not be
// used afterwards.
func (a *assembler) finish() (*frame.Stack, []metadata.FrameMetadata) {
	if a.stack == nil {
		return &frame.Stack{}, []metadata.FrameMetadata{}
	}
	a.stack.Trim()
	return a.stack, a.metadata
}
