package tree

import "fmt"

// InvariantError marks a violation of a block tree invariant: genesis
// suggested twice, a head with no total difficulty, MoveToMain of an
// unknown block, resolving a fork by number, an orphan surfacing
// during total-difficulty computation. Callers should treat this as
// unrecoverable and abort the process rather than retry.
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("blocktree: invariant violated in %s: %s", e.Op, e.Msg)
}

func invariantf(op, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// CorruptionError marks data found in storage that cannot be
// reconciled by lazy repair: a header referenced by the head record
// that doesn't exist, or similar. Fatal on read.
type CorruptionError struct {
	Op  string
	Msg string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("blocktree: data corruption detected in %s: %s", e.Op, e.Msg)
}

func corruptionf(op, format string, args ...any) *CorruptionError {
	return &CorruptionError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
