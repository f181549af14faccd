package maintenance

import "fmt"

// ErrorKind separates config/programmer bugs, which abort the whole pass,
// from per-item failures the loops skip over.
type ErrorKind int

const (
	Fatal ErrorKind = iota
	Recoverable
)

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fatalf(format string, args ...interface{}) *Error {
	return &Error{Kind: Fatal, Err: fmt.Errorf(format, args...)}
}

func recoverablef(format string, args ...interface{}) *Error {
	return &Error{Kind: Recoverable, Err: fmt.Errorf(format, args...)}
}
