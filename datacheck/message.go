package datacheck

import (
	"fmt"
	"strings"

	"github.com/kbukum/automl/errors"
)

// Level is the severity of a message.
type Level string

const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// MessageCode identifies what a check found.
type MessageCode string

const (
	CodeTargetHasNull           MessageCode = "TARGET_HAS_NULL"
	CodeTargetNotEnoughClasses  MessageCode = "TARGET_NOT_ENOUGH_CLASSES"
	CodeTargetBinaryNotTwo      MessageCode = "TARGET_BINARY_NOT_TWO_UNIQUE_VALUES"
	CodeTargetLengthMismatch    MessageCode = "MISMATCHED_LENGTHS"
	CodeClassImbalanceBelowFold MessageCode = "CLASS_IMBALANCE_BELOW_FOLDS"
	CodeClassImbalanceThreshold MessageCode = "CLASS_IMBALANCE_BELOW_THRESHOLD"
	CodeHighlyNullCols          MessageCode = "HIGHLY_NULL_COLS"
	CodeTooSparse               MessageCode = "TOO_SPARSE"
)

// ActionCode is a recommended remedy.
type ActionCode string

const (
	ActionDropCol    ActionCode = "DROP_COL"
	ActionImputeCol  ActionCode = "IMPUTE_COL"
	ActionDropTarget ActionCode = "DROP_ROWS_WITH_NULL_TARGET"
)

// Message is one finding of a check.
type Message struct {
	Message       string         `json:"message"`
	DataCheckName string         `json:"data_check_name"`
	Level         Level          `json:"level"`
	Code          MessageCode    `json:"code,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

func (m Message) String() string { return m.Message }

// Action recommends how to fix a finding.
type Action struct {
	Code     ActionCode     `json:"code"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result collects the messages and actions of one or more checks.
type Result struct {
	Warnings []Message `json:"warnings"`
	Errors   []Message `json:"errors"`
	Actions  []Action  `json:"actions"`
}

// HasErrors reports whether any check found an error.
func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

// Merge appends other's messages and actions.
func (r *Result) Merge(other Result) {
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Errors = append(r.Errors, other.Errors...)
	r.Actions = append(r.Actions, other.Actions...)
}

// Err turns the errors into a configuration error, or returns nil.
func (r Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, m := range r.Errors {
		msgs[i] = m.Message
	}
	return errors.Configuration(fmt.Sprintf("Data checks failed: %s", strings.Join(msgs, "; "))).
		WithDetail("errors", r.Errors)
}

func (r *Result) warn(check string, code MessageCode, msg string, details map[string]any) {
	r.Warnings = append(r.Warnings, Message{Message: msg, DataCheckName: check, Level: LevelWarning, Code: code, Details: details})
}

func (r *Result) fail(check string, code MessageCode, msg string, details map[string]any) {
	r.Errors = append(r.Errors, Message{Message: msg, DataCheckName: check, Level: LevelError, Code: code, Details: details})
}

func (r *Result) act(code ActionCode, metadata map[string]any) {
	r.Actions = append(r.Actions, Action{Code: code, Metadata: metadata})
}
