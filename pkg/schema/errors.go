package schema

import "fmt"

// Codes for structured error and issue reporting. Validation passes use
// these as issue codes; the same constants appear on GraphError when an
// operation fails hard.
const (
	// Hard error codes. The first three force critical severity.
	ErrCodeTargetNotFound = "TARGET_NODE_NOT_FOUND"
	ErrCodeCircular       = "CIRCULAR_DEPENDENCY"
	ErrCodeJumpCycle      = "JUMP_CREATES_CYCLE"
	ErrCodeStepNotFound   = "STEP_NOT_FOUND"
	ErrCodeNodeNotFound   = "NODE_NOT_FOUND"
	ErrCodeSelfLoop       = "SELF_LOOP"
	ErrCodeEndOutgoing    = "END_NODE_OUTGOING_EDGE"
	ErrCodeInvalidHandle  = "INVALID_BRANCH_HANDLE"
	ErrCodeInvalidJump    = "INVALID_JUMP_TARGET"
	ErrCodeDuplicateEdge  = "DUPLICATE_EDGE"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeInvalidState   = "INVALID_TRANSITION"
	ErrCodeStore          = "STORE_ERROR"
	ErrCodeExpression     = "EXPRESSION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"

	// Warning and suggestion codes. These never block commit.
	WarnCodeNoSteps        = "NO_STEPS_TO_TRANSFER"
	WarnCodeAlreadyBranch  = "TARGET_ALREADY_BRANCH"
	WarnCodeEdgeGone       = "EDGE_ALREADY_REMOVED"
	WarnCodeEdgeExists     = "EDGE_ALREADY_EXISTS"
	WarnCodeEndMidSequence = "END_NODE_MID_SEQUENCE"
	WarnCodeNestedBranch   = "NESTED_BRANCH"
	WarnCodeJumpUnset      = "JUMP_TARGET_UNSET"
	WarnCodeOrphan         = "POTENTIAL_ORPHAN"
	WarnCodeEndMultiIn     = "END_NODE_MULTIPLE_INBOUND"
	WarnCodeBadCondition   = "INVALID_CONDITION"
)

// GraphError is the structured error type for all engine operations.
type GraphError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *GraphError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *GraphError) Unwrap() error {
	return e.Cause
}

// NewError creates a new GraphError.
func NewError(code, message string) *GraphError {
	return &GraphError{Code: code, Message: message}
}

// NewErrorf creates a new GraphError with a formatted message.
func NewErrorf(code, format string, args ...any) *GraphError {
	return &GraphError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node ID to the error.
func (e *GraphError) WithNode(nodeID string) *GraphError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches an underlying cause.
func (e *GraphError) WithCause(err error) *GraphError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *GraphError) WithDetails(details map[string]any) *GraphError {
	e.Details = details
	return e
}
