package friends

import (
	"errors"
	"fmt"
)

var (
	// ErrSelfRequest indicates a user tried to friend themselves.
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")
	// ErrAlreadyFriends indicates the target is already in the caller's friends list.
	ErrAlreadyFriends = errors.New("users are already friends")
	// ErrRequestPending indicates a pending request already exists for the pair.
	ErrRequestPending = errors.New("a pending friend request already exists")
	// ErrAlreadyTerminal indicates the request was already accepted, declined,
	// or cancelled. Re-resolving a terminal request is reported, not fatal.
	ErrAlreadyTerminal = errors.New("friend request already resolved")
)

// PartialError reports a multi-write operation that failed after some writes
// committed. The remaining writes are idempotent; recovery is a blind retry
// (Reconcile for acceptance, RemoveFriend for removal), never a rollback.
type PartialError struct {
	Op   string
	Step string
	Err  error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Step, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
