// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Each typed error below matches exactly one.
var (
	ErrTransport      = errors.New("transport error")
	ErrNotFound       = errors.New("not found")
	ErrMemberNotFound = errors.New("archive member not found")
	ErrDecode         = errors.New("decode error")
)

// TransportError reports a failed HTTP exchange: either no response or a
// non-success status.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d from %s", e.Op, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// NotFoundError reports that no dataset version matched the request.
type NotFoundError struct {
	ProjectID int
	// Date is the requested date; empty means the latest version was requested.
	Date string
	// What overrides the default description.
	What string
	// Err is the failure that left the lookup without a result, if any.
	Err error
}

func (e *NotFoundError) Error() string {
	var msg string
	switch {
	case e.What != "":
		msg = e.What + " not found"
	case e.Date != "":
		msg = fmt.Sprintf("no dataset version published on %s in project %d", e.Date, e.ProjectID)
	default:
		msg = fmt.Sprintf("no dataset versions in project %d", e.ProjectID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotFoundError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Err}
}

// MemberNotFoundError reports an archive that lacks every expected member name.
type MemberNotFoundError struct {
	Kind      Kind
	Expected  []string
	Available []string
}

func (e *MemberNotFoundError) Error() string {
	var b strings.Builder
	if e.Kind != "" {
		fmt.Fprintf(&b, "archive has no %s table: expected one of %s", e.Kind, strings.Join(e.Expected, ", "))
	} else {
		fmt.Fprintf(&b, "archive has no member %s", strings.Join(e.Expected, ", "))
	}
	if len(e.Available) > 0 {
		fmt.Fprintf(&b, " (archive contains %s)", strings.Join(e.Available, ", "))
	}
	return b.String()
}

func (e *MemberNotFoundError) Unwrap() error { return ErrMemberNotFound }

// DecodeError reports malformed archive or member content.
type DecodeError struct {
	// Source is the member name, or "archive" for the container itself.
	Source string
	// Line is the 1-based input line when known.
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("decoding %s line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("decoding %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
