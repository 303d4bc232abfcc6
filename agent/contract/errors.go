package contract

import "errors"

var (
	ErrModelInvoke  = errors.New("model invoke failed")
	ErrUnknownTool  = errors.New("unknown tool")
	ErrToolArgument = errors.New("invalid tool argument")
	ErrRetrieval    = errors.New("knowledge retrieval failed")
	ErrPersistence  = errors.New("persistence failed")
	ErrValidation   = errors.New("validation failed")
)
