package main

import "fmt"

// InvalidRequestError is returned to the client as 400.
type InvalidRequestError struct {
	Param  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Param)
}

func missingParam(names string) *InvalidRequestError {
	return &InvalidRequestError{Param: names, Reason: "missing required parameter"}
}
