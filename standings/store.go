package standings

import (
	"context"
	"errors"

	"github.com/to404hanga/online_judge_pipeline/model"
)

// ErrNotRegistered means a contest submission came from a user without a
// standings entry. It points at a data-integrity fault upstream.
var ErrNotRegistered = errors.New("user is not registered in contest")

// UpdateFunc mutates a standings entry and reports whether it changed.
type UpdateFunc func(entry *model.ContestUser) (changed bool, err error)

// CommitFunc persists an entry update, together with whatever else the
// caller changes in the same unit of work. fn is nil when no entry changes.
type CommitFunc func(ctx context.Context, fn UpdateFunc) error

type Store interface {
	// Register creates empty entries; users that already have one are skipped.
	Register(ctx context.Context, contestID uint64, userIDs ...uint64) error
	Unregister(ctx context.Context, contestID uint64, userIDs ...uint64) error
	// Update loads the entry of (contestID, userID), applies fn and persists
	// the entry when fn reports a change. A missing entry yields ErrNotRegistered.
	Update(ctx context.Context, contestID, userID uint64, fn UpdateFunc) error
	Get(ctx context.Context, contestID, userID uint64) (*model.ContestUser, error)
	// List returns every entry of the contest ordered by user id.
	List(ctx context.Context, contestID uint64) ([]model.ContestUser, error)
}

// ProblemSource provides the problem set of a contest.
type ProblemSource interface {
	ProblemIDs(ctx context.Context, contestID uint64) ([]uint64, error)
}
