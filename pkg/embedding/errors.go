package embedding

import "fmt"

// Stage names the construction step an EmbeddingError happened in.
type Stage string

const (
	StageEnvironment Stage = "environment"
	StageController  Stage = "controller"
	StageNavigate    Stage = "navigate"
)

// EmbeddingError is a fatal session construction failure.
type EmbeddingError struct {
	Stage Stage
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s stage failed: %v", e.Stage, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func stageError(stage Stage, err error) *EmbeddingError {
	return &EmbeddingError{Stage: stage, Err: err}
}
