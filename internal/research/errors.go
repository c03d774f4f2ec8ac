package research

import (
	"errors"
	"fmt"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

var (
	ErrInvalidState          = errors.New("research already in progress")
	ErrAlreadyResearched     = errors.New("technology already researched")
	ErrNotAvailable          = errors.New("technology not available")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrNoActiveResearch      = errors.New("no active research")
	ErrUnknownTechnology     = errors.New("unknown technology")
)

// OperationError is returned by scheduler operations that were rejected.
// A rejected operation never changes state.
type OperationError struct {
	Op   string
	Node models.TechID
	Err  error
}

func (e *OperationError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Node, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func opError(op string, id models.TechID, err error) error {
	return &OperationError{Op: op, Node: id, Err: err}
}
