package types

import (
	"fmt"

	"github.com/brainyhq/brainy/internal/brainyerr"
)

// ValidateNounInput checks a NounInput before it reaches the engine,
// matching the teacher's style of validating at the type layer rather than
// scattering checks across storage backends.
func ValidateNounInput(in NounInput, dim int) error {
	if in.Type == "" {
		return fmt.Errorf("noun type is required: %w", brainyerr.ErrInvalidArgument)
	}
	if dim > 0 && len(in.Vector) != 0 && len(in.Vector) != dim {
		return fmt.Errorf("vector has dimension %d, store requires %d: %w", len(in.Vector), dim, brainyerr.ErrInvalidArgument)
	}
	if in.Confidence != nil && (*in.Confidence < 0 || *in.Confidence > 1) {
		return fmt.Errorf("confidence must be between 0 and 1: %w", brainyerr.ErrInvalidArgument)
	}
	return nil
}

// ValidateVerbInput checks a VerbInput before relate().
func ValidateVerbInput(in VerbInput) error {
	if in.Type == "" {
		return fmt.Errorf("verb type is required: %w", brainyerr.ErrInvalidArgument)
	}
	if in.From == "" || in.To == "" {
		return fmt.Errorf("verb requires both from and to: %w", brainyerr.ErrInvalidArgument)
	}
	return nil
}

// ValidateWhereClause rejects unknown operators up front so the metadata
// index never has to fail deep inside a recursive evaluation.
func ValidateWhereClause(w WhereClause) error {
	for field, val := range w {
		switch field {
		case OpAnd, OpOr:
			clauses, ok := val.([]WhereClause)
			if !ok {
				return fmt.Errorf("%s must be an array of clauses: %w", field, brainyerr.ErrInvalidArgument)
			}
			for _, c := range clauses {
				if err := ValidateWhereClause(c); err != nil {
					return err
				}
			}
		default:
			if ops, ok := val.(map[string]interface{}); ok {
				for op := range ops {
					if !isKnownOperator(op) {
						return fmt.Errorf("unknown operator %q for field %q: %w", op, field, brainyerr.ErrInvalidArgument)
					}
				}
			}
		}
	}
	return nil
}

func isKnownOperator(op string) bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpContains:
		return true
	default:
		return false
	}
}
