package models

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound         = codeError(codes.NotFound, "not found")
	ErrInvalidArgument  = codeError(codes.InvalidArgument, "invalid argument")
	ErrPermissionDenied = codeError(codes.PermissionDenied, "permission denied")
	ErrUnauthenticated  = codeError(codes.Unauthenticated, "unauthenticated")
	ErrMuted            = codeError(codes.FailedPrecondition, "user is muted")
	ErrRateLimited      = codeError(codes.ResourceExhausted, "too many requests")
	ErrAlreadyExists    = codeError(codes.AlreadyExists, "already exists")
)

// statusError carries a grpc code without the "rpc error" prefix in its text.
type statusError struct {
	code codes.Code
	msg  string
}

func codeError(code codes.Code, msg string) error {
	return &statusError{code: code, msg: msg}
}

func (e *statusError) Error() string {
	return e.msg
}

func (e *statusError) GRPCStatus() *status.Status {
	return status.New(e.code, e.msg)
}

type FailureKind int

const (
	LoadFailure FailureKind = iota + 1
	SubscriptionFailure
	MutationFailure
	UploadFailure
)

func (k FailureKind) String() string {
	switch k {
	case LoadFailure:
		return "load"
	case SubscriptionFailure:
		return "subscription"
	case MutationFailure:
		return "mutation"
	case UploadFailure:
		return "upload"
	default:
		return "unknown"
	}
}

// Failure is a recoverable error surfaced to the user as a notice. None of
// them are retried automatically.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

func NewFailure(kind FailureKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) && f.Kind == kind {
		return err
	}
	return &Failure{Kind: kind, Op: op, Err: err}
}

func (f *Failure) Error() string {
	if f.Op == "" {
		return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s failure: %s: %v", f.Kind, f.Op, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches another *Failure by kind, so errors.Is(err, &Failure{Kind: LoadFailure}) works.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Op == "" || t.Op == f.Op)
}

// Notice is the short text shown to the user for err.
func Notice(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if !errors.As(err, &f) {
		return "Something went wrong, please try again."
	}
	switch f.Kind {
	case LoadFailure:
		return "Could not load data. Pull to refresh."
	case SubscriptionFailure:
		return "Live updates are unavailable. Refresh to see new items."
	case UploadFailure:
		return "Upload failed: " + f.Err.Error()
	default:
		return "Action failed: " + f.Err.Error()
	}
}

// CodeOf returns the grpc code carried by err, or codes.Unknown.
func CodeOf(err error) codes.Code {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if s, ok := status.FromError(e); ok {
			return s.Code()
		}
	}
	return codes.Unknown
}
