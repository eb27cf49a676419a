package runner

import "fmt"

// MissingParameterError is returned when an action references $N (or
// $loop.index outside any repeat) with no binding in any enclosing
// scope and no matching host variable either.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter %q", e.Name)
}
