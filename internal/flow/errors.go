package flow

import (
	"errors"
	"fmt"
	"strings"

	"sellerops/internal/models"
)

var (
	ErrBlockNotFound   = errors.New("block not found")
	ErrStepNotFound    = errors.New("step not found")
	ErrUnknownCategory = errors.New("unknown block category")
)

// InvalidOptionError is returned when an option does not belong to the block's category
type InvalidOptionError struct {
	Category models.Category
	Option   string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %q for category %q", e.Option, e.Category)
}

// DanglingReferenceError is returned when a mutation would leave steps
// pointing at a block that no longer exists
type DanglingReferenceError struct {
	BlockID string
	StepIDs []string
}

func (e *DanglingReferenceError) Error() string {
	if len(e.StepIDs) == 0 {
		return fmt.Sprintf("block %s is referenced but does not exist", e.BlockID)
	}
	return fmt.Sprintf("block %s is still referenced by steps [%s]", e.BlockID, strings.Join(e.StepIDs, ", "))
}

// InvalidStepError describes a step that is neither a well-formed block step nor agent step
type InvalidStepError struct {
	StepID string
	Reason string
}

func (e *InvalidStepError) Error() string {
	if e.StepID == "" {
		return "invalid step: " + e.Reason
	}
	return fmt.Sprintf("invalid step %s: %s", e.StepID, e.Reason)
}

// ValidationError aggregates structural problems found by Validate
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid flow: " + strings.Join(e.Problems, "; ")
}
