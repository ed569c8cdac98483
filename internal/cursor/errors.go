package cursor

import "errors"

// Kind classifies a cursor error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindInvalidMarkDelete
	KindAlreadyClosed
	KindBrokenCursor
	KindMetaStoreError
	KindMetaStoreBadVersion
	KindLogReadError
	KindLogWriteError
	KindLedgerNotExist
	KindNotEnoughEntries
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindInvalidMarkDelete:
		return "invalid_mark_delete"
	case KindAlreadyClosed:
		return "cursor_already_closed"
	case KindBrokenCursor:
		return "broken_cursor"
	case KindMetaStoreError:
		return "meta_store_error"
	case KindMetaStoreBadVersion:
		return "meta_store_bad_version"
	case KindLogReadError:
		return "log_read_error"
	case KindLogWriteError:
		return "log_write_error"
	case KindLedgerNotExist:
		return "ledger_not_exist"
	case KindNotEnoughEntries:
		return "not_enough_entries"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind, usable with errors.Is/As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// newErr constructs an *Error, wrapping err (which may be nil).
func newErr(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Sentinel errors, one per error kind, for callers that only need
// errors.Is against a stable value rather than the Kind/Err pair.
var (
	ErrInvalidArgument     = newErr(KindInvalidArgument, errors.New("invalid argument"))
	ErrInvalidMarkDelete   = newErr(KindInvalidMarkDelete, errors.New("mark-delete must be monotonically increasing"))
	ErrAlreadyClosed       = newErr(KindAlreadyClosed, errors.New("cursor is closed"))
	ErrBrokenCursor        = newErr(KindBrokenCursor, errors.New("cursor state could not be recovered"))
	ErrPendingReadExists   = newErr(KindInvalidArgument, errors.New("a pending read is already registered"))
	ErrPositionBeforeReady = newErr(KindInvalidArgument, errors.New("position precedes the mark-delete watermark"))

	// ErrNotEnoughEntries is returned by GetNthEntry when the log holds
	// fewer than n eligible entries after mark_delete_pos. It carries its
	// own Kind so a caller can tell this documented boundary outcome apart
	// from a genuinely invalid argument (n<=0) via errors.Is.
	ErrNotEnoughEntries = newErr(KindNotEnoughEntries, errors.New("fewer than n eligible entries remain in the log"))
)

// errDeletedCursor and errUninitialized back checkOpenLocked's non-Active
// branches that aren't covered by one of the exported sentinels above.
var (
	errDeletedCursor = errors.New("cursor has been deleted")
	errUninitialized = errors.New("cursor was never initialized")
	errInvalidMax    = errors.New("max must be positive")
	errInvalidN      = errors.New("n must be positive")
)

// Is supports errors.Is(err, cursor.ErrInvalidArgument) style comparisons by
// Kind rather than identity, since callers construct *Error values wrapping
// different underlying causes.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
