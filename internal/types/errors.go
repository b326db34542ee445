package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below match these through errors.Is.
var (
	ErrUnknownProperty          = errors.New("unknown property")
	ErrUnsupportedExpression    = errors.New("unsupported expression")
	ErrUnsupportedReversal      = errors.New("unsupported reversal")
	ErrAmbiguousForeignRelation = errors.New("ambiguous foreign relation")
	ErrUndefinedForeignRelation = errors.New("undefined foreign relation")
	ErrEvaluationFailure        = errors.New("evaluation failure")
	ErrInvalidPipelineState     = errors.New("invalid pipeline state")
	ErrDecode                   = errors.New("decode error")
	ErrInvalidIdentifier        = errors.New("invalid identifier")
	ErrDuplicateRegistration    = errors.New("duplicate registration")
)

// PropertyError reports a property that the resolver does not know.
type PropertyError struct {
	Object   string
	Property string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("unknown property %q on %q", e.Property, e.Object)
}

func (e *PropertyError) Unwrap() error { return ErrUnknownProperty }

// ExpressionError reports a node or construct that cannot be handled.
type ExpressionError struct {
	Expr   string
	Reason string
}

func (e *ExpressionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported expression %s", e.Expr)
	}
	return fmt.Sprintf("unsupported expression %s: %s", e.Expr, e.Reason)
}

func (e *ExpressionError) Unwrap() error { return ErrUnsupportedExpression }

// ReversalError reports an operator without an order-reversed counterpart.
type ReversalError struct {
	Op LogicOperator
}

func (e *ReversalError) Error() string {
	return fmt.Sprintf("operator %s cannot be reversed", e.Op)
}

func (e *ReversalError) Unwrap() error { return ErrUnsupportedReversal }

// RelationError reports a foreign relation that could not be resolved to a single join.
type RelationError struct {
	Object     string
	Relation   string
	Candidates []string
}

func (e *RelationError) Error() string {
	if len(e.Candidates) > 1 {
		return fmt.Sprintf("relation %q on %q is ambiguous: %s", e.Relation, e.Object, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("relation %q on %q is not defined", e.Relation, e.Object)
}

func (e *RelationError) Unwrap() error {
	if len(e.Candidates) > 1 {
		return ErrAmbiguousForeignRelation
	}
	return ErrUndefinedForeignRelation
}

// EvaluationError reports a parameter-independent subtree that failed to evaluate.
type EvaluationError struct {
	Expr string
	Err  error
}

func (e *EvaluationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot evaluate %s", e.Expr)
	}
	return fmt.Sprintf("cannot evaluate %s: %v", e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEvaluationFailure}
	}
	return []error{ErrEvaluationFailure, e.Err}
}

// PipelineError reports a query stage applied where the chain does not allow it.
type PipelineError struct {
	Stage string
	After string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s cannot follow %s", e.Stage, e.After)
}

func (e *PipelineError) Unwrap() error { return ErrInvalidPipelineState }

// DecodeError reports a malformed serialized node at Path.
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	return fmt.Sprintf("decode %s: %s", e.Path, msg)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

// IdentifierError reports an identifier outside [A-Za-z0-9_]+.
type IdentifierError struct {
	Kind  string
	Ident string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid %s identifier %q", e.Kind, e.Ident)
}

func (e *IdentifierError) Unwrap() error { return ErrInvalidIdentifier }
