package station

import "fmt"

// Kind classifies a failed loop step.
type Kind int

const (
	KindConnectionFailed Kind = iota + 1
	KindSendFailed
	KindReceiveFailed
	KindParseFailed
	KindRenderFailed
)

var kindNames = map[Kind]string{
	KindConnectionFailed: "connection_failed",
	KindSendFailed:       "send_failed",
	KindReceiveFailed:    "receive_failed",
	KindParseFailed:      "parse_failed",
	KindRenderFailed:     "render_failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error returned by every loop step.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrConnectionFailed = &Error{Kind: KindConnectionFailed}
	ErrSendFailed       = &Error{Kind: KindSendFailed}
	ErrReceiveFailed    = &Error{Kind: KindReceiveFailed}
	ErrParseFailed      = &Error{Kind: KindParseFailed}
	ErrRenderFailed     = &Error{Kind: KindRenderFailed}
)

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
