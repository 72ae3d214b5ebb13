package subdoc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Status is the outcome code of an operation or of a single sub-document spec.
type Status uint16

const (
	StatusSuccess Status = iota
	StatusKeyNotFound
	StatusKeyExists
	StatusTooBig
	StatusTempFail
	StatusDeltaBadValue
	StatusInvalidArgument
	StatusPathNotFound
	StatusPathMismatch
	StatusPathInvalid
	StatusPathExists
	StatusBadDelta
	StatusNumRange
	StatusValueCantInsert
	StatusDocNotJSON
	StatusEmptyPath
	StatusMultiFailure
)

var statusNames = [...]string{
	StatusSuccess:         "SUCCESS",
	StatusKeyNotFound:     "KEY_ENOENT",
	StatusKeyExists:       "KEY_EEXISTS",
	StatusTooBig:          "E2BIG",
	StatusTempFail:        "TMPFAIL",
	StatusDeltaBadValue:   "DELTA_BADVAL",
	StatusInvalidArgument: "INVALID_ARGUMENT",
	StatusPathNotFound:    "PATH_ENOENT",
	StatusPathMismatch:    "PATH_MISMATCH",
	StatusPathInvalid:     "PATH_EINVAL",
	StatusPathExists:      "PATH_EEXISTS",
	StatusBadDelta:        "BAD_DELTA",
	StatusNumRange:        "NUM_ERANGE",
	StatusValueCantInsert: "VALUE_CANTINSERT",
	StatusDocNotJSON:      "DOC_NOTJSON",
	StatusEmptyPath:       "EMPTY_PATH",
	StatusMultiFailure:    "MULTI_FAILURE",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "STATUS_" + strconv.Itoa(int(s))
}

// Temporary reports whether retrying the same call later may succeed.
func (s Status) Temporary() bool {
	return s == StatusKeyExists || s == StatusTempFail
}

var (
	ErrKeyNotFound     = &Error{Status: StatusKeyNotFound}
	ErrKeyExists       = &Error{Status: StatusKeyExists}
	ErrTooBig          = &Error{Status: StatusTooBig}
	ErrLocked          = &Error{Status: StatusTempFail}
	ErrDeltaBadValue   = &Error{Status: StatusDeltaBadValue}
	ErrInvalidArgument = &Error{Status: StatusInvalidArgument}
	ErrPathNotFound    = &Error{Status: StatusPathNotFound}
	ErrPathMismatch    = &Error{Status: StatusPathMismatch}
	ErrPathInvalid     = &Error{Status: StatusPathInvalid}
	ErrPathExists      = &Error{Status: StatusPathExists}
	ErrBadDelta        = &Error{Status: StatusBadDelta}
	ErrNumRange        = &Error{Status: StatusNumRange}
	ErrValueCantInsert = &Error{Status: StatusValueCantInsert}
	ErrDocNotJSON      = &Error{Status: StatusDocNotJSON}
	ErrEmptyPath       = &Error{Status: StatusEmptyPath}
	ErrMultiFailure    = &Error{Status: StatusMultiFailure}
)

// Error is returned by every operation of this package. errors.Is matches it
// against the Err* sentinels by Status alone.
type Error struct {
	Status Status
	Key    string
	Path   string
	Msg    string

	// Failed lists the positions of failed specs of a MULTI_FAILURE.
	Failed []int

	Err error
}

func statusErrf(status Status, key string, err error, format string, args ...any) error {
	return &Error{Status: status, Key: key, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Status == e.Status && t.Key == "" && t.Path == ""
}

func (e *Error) Error() string {
	var buf strings.Builder
	buf.WriteString("subdoc: ")
	if e.Key != "" {
		buf.WriteString(e.Key)
		buf.WriteString(": ")
	}
	if e.Path != "" {
		buf.WriteString(e.Path)
		buf.WriteString(": ")
	}
	buf.WriteString(e.Status.String())
	if len(e.Failed) > 0 {
		fmt.Fprintf(&buf, " (specs %v)", e.Failed)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// StatusOf returns the status carried by err: StatusSuccess for nil,
// StatusInvalidArgument for foreign errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusInvalidArgument
}

// DataError reports a stored record that cannot be decoded.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}
