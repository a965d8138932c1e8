package contract

import "errors"

var (
	ErrProvider          = errors.New("llm provider call failed")
	ErrParse             = errors.New("llm response is malformed")
	ErrUnknownTool       = errors.New("tool is not registered")
	ErrDuplicateTool     = errors.New("tool id is already registered")
	ErrInvalidParams     = errors.New("tool params do not match declared shape")
	ErrToolExecution     = errors.New("tool execution failed")
	ErrToolTimeout       = errors.New("tool execution timed out")
	ErrMaxToolIterations = errors.New("tool-call loop exceeded max iterations")
	ErrBusy              = errors.New("an execution cycle is already in flight")
	ErrNotFound          = errors.New("no message found")
	ErrLog               = errors.New("log layer failed")
	ErrValidation        = errors.New("validation failed")
)
