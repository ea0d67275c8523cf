package fanout

import (
	"fmt"
	"syscall"
)

// Error wraps a fop-level failure with the errno category the caller is
// expected to see (spec §7 "Error taxonomy"). Op names the failing fop for
// logging; Errno is the syscall error the protocol boundary should surface.
type Error struct {
	Op    string
	Errno syscall.Errno
	Msg   string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Msg, e.Errno)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Errno)
}

func (e *Error) Unwrap() error { return e.Errno }

// childErr builds a transport/child error (spec §7: "any errno returned by a
// subvolume; the engine categorizes them only to decide propagation").
func childErr(op string, err error) *Error {
	return &Error{Op: op, Errno: errnoOf(err), Msg: err.Error()}
}

// consistencyErr builds a consistency error (disagreeing stripe-count,
// missing geometry xattrs with degraded flag set) — surfaced as EIO.
func consistencyErr(op, msg string) *Error {
	return &Error{Op: op, Errno: syscall.EIO, Msg: msg}
}

// availabilityErr builds an availability error for all-up-required fop
// classes when some subvolume is down — surfaced as ENOTCONN.
func availabilityErr(op, msg string) *Error {
	return &Error{Op: op, Errno: syscall.ENOTCONN, Msg: msg}
}

// geometryErr builds a geometry error: the cached descriptor is absent or
// invalid at a fop that requires one — surfaced as EINVAL.
func geometryErr(op, msg string) *Error {
	return &Error{Op: op, Errno: syscall.EINVAL, Msg: msg}
}

// errnoOf extracts a syscall.Errno from err if it carries one, defaulting to
// EIO for opaque backend errors (spec §7: "the engine categorizes them only
// to decide propagation").
func errnoOf(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if asErrno(err, &errno) {
		return errno
	}
	return syscall.EIO
}

func asErrno(err error, target *syscall.Errno) bool {
	type errnoProvider interface{ Errno() syscall.Errno }
	for err != nil {
		if e, ok := err.(syscall.Errno); ok {
			*target = e
			return true
		}
		if p, ok := err.(errnoProvider); ok {
			*target = p.Errno()
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
