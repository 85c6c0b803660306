package onnxscore

import "errors"

var (
	// ErrConfig reports an invalid engine configuration.
	ErrConfig = errors.New("onnxscore: invalid configuration")

	// ErrModelNotFound reports a model path that does not exist.
	ErrModelNotFound = errors.New("onnxscore: model file not found")

	// ErrNotInitialized reports a session request before Initialize.
	ErrNotInitialized = errors.New("onnxscore: runtime not initialized")

	// ErrModelIO reports a graph whose inputs or outputs do not match
	// the expected encoder/decoder/joint layout.
	ErrModelIO = errors.New("onnxscore: unexpected model inputs/outputs")

	// ErrBadInput reports malformed encoder features.
	ErrBadInput = errors.New("onnxscore: invalid encoder input")

	// ErrBadState reports a decoder state or output this engine did not
	// produce.
	ErrBadState = errors.New("onnxscore: foreign decoder state")

	// ErrShape reports a runtime tensor whose shape or type differs
	// from the exported contract.
	ErrShape = errors.New("onnxscore: unexpected tensor shape")
)
