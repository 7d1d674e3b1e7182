package service

type ResultKind int

const (
	ResultOk ResultKind = iota
	ResultRetryable
	ResultFatal
)

func (k ResultKind) String() string {
	switch k {
	case ResultOk:
		return "ok"
	case ResultRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Result carries an outcome whose failure mode the caller must route:
// retry later, escalate, or drop.
type Result[T any] struct {
	Kind  ResultKind
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Kind: ResultOk, Value: v}
}

func Retryable[T any](err error) Result[T] {
	return Result[T]{Kind: ResultRetryable, Err: err}
}

func Fatal[T any](err error) Result[T] {
	return Result[T]{Kind: ResultFatal, Err: err}
}

func (r Result[T]) IsOk() bool { return r.Kind == ResultOk }
