package domain

// Resource is the status of an asynchronous request delivered to the caller.
// The variants are Loading, Success and Failure; match them with a type switch:
//
//	switch r := res.(type) {
//	case domain.Loading[T]:
//	case domain.Success[T]:
//		use(r.Data)
//	case domain.Failure[T]:
//		show(r.Message)
//	}
type Resource[T any] interface {
	resource(T)
}

// Loading signals that work has been accepted and is in progress
type Loading[T any] struct{}

// Success carries a result
type Success[T any] struct {
	Data T
}

// Failure carries a user-facing message and the underlying error
type Failure[T any] struct {
	Message string
	Err     error
}

func (Loading[T]) resource(T) {}
func (Success[T]) resource(T) {}
func (Failure[T]) resource(T) {}

// Fail builds a Failure from err using the user-facing message for its kind.
func Fail[T any](err error) Failure[T] {
	return Failure[T]{Message: Message(err), Err: err}
}

// IsTerminal reports whether r ends a request.
func IsTerminal[T any](r Resource[T]) bool {
	switch r.(type) {
	case Success[T], Failure[T]:
		return true
	default:
		return false
	}
}
