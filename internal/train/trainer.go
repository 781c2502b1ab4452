package train

import (
	"context"
	"time"

	"github.com/ocrmate/ocrmate/internal/schema"
)

// Trainer optimizes an extractor against a dataset. Implementations
// wrap an external prompt optimizer; the repo is responsible only for
// feeding it examples and a metric and recording what comes back.
type Trainer interface {
	Optimize(ctx context.Context, s *schema.Schema, trainSet, valSet []Example, metric *Metric) (*OptimizationResult, error)
}

// FieldMetrics is the per-field accuracy breakdown after optimization.
type FieldMetrics struct {
	FieldName  string   `json:"field_name"`
	Accuracy   float64  `json:"accuracy"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// OptimizationMetrics summarizes a finished optimization run.
type OptimizationMetrics struct {
	BaselineAccuracy  float64 `json:"baseline_accuracy"`
	OptimizedAccuracy float64 `json:"optimized_accuracy"`
	// Improvement is in percentage points.
	Improvement float64 `json:"improvement"`

	FieldMetrics []FieldMetrics `json:"field_metrics,omitempty"`

	TrainingExamplesUsed   int `json:"training_examples_used"`
	ValidationExamplesUsed int `json:"validation_examples_used"`

	IterationsCompleted     int     `json:"iterations_completed,omitempty"`
	OptimizationTimeSeconds float64 `json:"optimization_time_seconds,omitempty"`
}

// OptimizationResult is the complete outcome of one optimization run,
// failed or successful.
type OptimizationResult struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`

	Metrics *OptimizationMetrics `json:"metrics,omitempty"`

	// OptimizedPrompts maps field name to the tuned extraction prompt.
	OptimizedPrompts     map[string]string `json:"optimized_prompts,omitempty"`
	OptimizedProgramPath string            `json:"optimized_program_path,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns the wall-clock run time, or zero if the run never
// completed.
func (r *OptimizationResult) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
