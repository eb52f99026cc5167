package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OperationError is a user-facing node failure.
// ItemIndex is -1 until the failing item is known.
type OperationError struct {
	Node        string
	Message     string
	Description string
	ItemIndex   int
	Err         error
}

func NewOperationError(node, message string) *OperationError {
	return &OperationError{Node: node, Message: message, ItemIndex: -1}
}

// WrapOperationError converts err into an *OperationError, keeping an existing one intact.
func WrapOperationError(node string, err error) *OperationError {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr
	}
	return &OperationError{Node: node, Message: err.Error(), ItemIndex: -1, Err: err}
}

func (e *OperationError) Error() string {
	if e.ItemIndex >= 0 {
		return fmt.Sprintf("%s [item %d]", e.Message, e.ItemIndex)
	}
	return e.Message
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func (e *OperationError) WithDescription(description string) *OperationError {
	e.Description = description
	return e
}

func (e *OperationError) WithItemIndex(itemIndex int) *OperationError {
	e.ItemIndex = itemIndex
	return e
}

// HTTPError is returned for non-2xx responses. Body is the decoded response body.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       any
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("request failed with status code %d", e.StatusCode)
	switch b := e.Body.(type) {
	case nil:
	case string:
		if b != "" {
			msg += ": " + b
		}
	default:
		if data, err := json.Marshal(b); err == nil && string(data) != "{}" {
			msg += ": " + string(data)
		}
	}
	return msg
}
