package models

type ResultStatus string

const (
	StatusOk       ResultStatus = "ok"
	StatusDegraded ResultStatus = "degraded"
	StatusErr      ResultStatus = "error"
)

// Result distinguishes real data, fallback data served because a
// dependency failed, and a caller error that produced no data at all.
type Result[T any] struct {
	Status ResultStatus
	Data   T
	Reason string
	Err    error
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Status: StatusOk, Data: data}
}

func Degraded[T any](data T, reason string) Result[T] {
	return Result[T]{Status: StatusDegraded, Data: data, Reason: reason}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Status: StatusErr, Err: err}
}

func (r Result[T]) IsOk() bool       { return r.Status == StatusOk }
func (r Result[T]) IsDegraded() bool { return r.Status == StatusDegraded }
func (r Result[T]) IsErr() bool      { return r.Status == StatusErr }
