package models

import "fmt"

// InvalidIdentifierError reports an AS identifier that is not parseable as an
// integer. The MRT parser recovers from it for set-notation path tokens; every
// other caller should treat it as fatal.
type InvalidIdentifierError struct {
	ID string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid AS identifier: %q is not a valid integer", e.ID)
}

// MismatchedIdentifierError reports an attempt to merge two profiles that
// describe different Autonomous Systems. It signals a caller bug.
type MismatchedIdentifierError struct {
	A, B string
}

func (e *MismatchedIdentifierError) Error() string {
	return fmt.Sprintf("cannot merge AS %s with AS %s: identifiers differ", e.A, e.B)
}
