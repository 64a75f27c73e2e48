package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nurtura/nurtura/pkg/models"
	"github.com/nurtura/nurtura/pkg/persistence"
)

// StepEventType tags a raw step event.
type StepEventType string

const (
	StepEventEntered   StepEventType = "entered"
	StepEventExited    StepEventType = "exited"
	StepEventCompleted StepEventType = "completed"
)

// EnrollmentEvent is one participant entering a workflow.
type EnrollmentEvent struct {
	ContactID  string                  `json:"contact_id"`
	Source     models.EnrollmentSource `json:"source"`
	OccurredAt time.Time               `json:"occurred_at"`
}

// StepEvent is one participant transition recorded against a step.
type StepEvent struct {
	StepID     string            `json:"step_id"`
	Type       StepEventType     `json:"type"`
	ExitReason models.ExitReason `json:"exit_reason,omitempty"`
	Duration   time.Duration     `json:"duration,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// WorkflowData is the full raw document stored per workflow.
type WorkflowData struct {
	Steps       []models.StepDefinition `json:"steps"`
	Enrollments []EnrollmentEvent       `json:"enrollments"`
	StepEvents  []StepEvent             `json:"step_events"`
}

// WorkflowDataRepository reads and aggregates per-workflow JSON documents.
type WorkflowDataRepository struct {
	mu   sync.RWMutex
	root string
}

// NewWorkflowDataRepository creates a repository rooted at the given directory.
func NewWorkflowDataRepository(root string) *WorkflowDataRepository {
	return &WorkflowDataRepository{root: root}
}

func (r *WorkflowDataRepository) workflowPath(workflowID string) string {
	return filepath.Join(r.root, "workflows", workflowID+".json")
}

func (r *WorkflowDataRepository) snapshotDir(workflowID string) string {
	return filepath.Join(r.root, "snapshots", workflowID)
}

// Save writes the workflow document, replacing any previous one.
func (r *WorkflowDataRepository) Save(_ context.Context, workflowID string, data *WorkflowData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.workflowPath(workflowID)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow data: %w", err)
	}

	err = os.WriteFile(path, payload, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write workflow data: %w", err)
	}

	return nil
}

func (r *WorkflowDataRepository) load(workflowID string) (*WorkflowData, error) {
	payload, err := os.ReadFile(r.workflowPath(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, &persistence.QueryError{Op: "Load", WorkflowID: workflowID, Err: err}
	}

	var data WorkflowData

	err = json.Unmarshal(payload, &data)
	if err != nil {
		return nil, &persistence.QueryError{Op: "Load", WorkflowID: workflowID, Err: err}
	}

	return &data, nil
}

// Steps returns the stored step definitions in pipeline order.
func (r *WorkflowDataRepository) Steps(_ context.Context, workflowID string) ([]models.StepDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := r.load(workflowID)
	if err != nil {
		return nil, err
	}

	steps := make([]models.StepDefinition, len(data.Steps))
	copy(steps, data.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Position < steps[j].Position
	})

	return steps, nil
}

// Counters aggregates the stored events inside the range per step.
func (r *WorkflowDataRepository) Counters(_ context.Context, workflowID string, tr models.TimeRange) ([]models.RawStepCounters, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := r.load(workflowID)
	if err != nil {
		return nil, err
	}

	type totals struct {
		entered   int64
		exited    int64
		completed int64
		duration  time.Duration
		exits     map[models.ExitReason]int64
	}

	byStep := make(map[string]*totals, len(data.Steps))
	for _, step := range data.Steps {
		byStep[step.StepID] = &totals{exits: make(map[models.ExitReason]int64)}
	}

	for _, event := range data.StepEvents {
		if !tr.Contains(event.OccurredAt) {
			continue
		}

		entry, ok := byStep[event.StepID]
		if !ok {
			// Events against undefined steps are data drift; skip them.
			continue
		}

		switch event.Type {
		case StepEventEntered:
			entry.entered++
		case StepEventExited:
			entry.exited++

			if event.ExitReason != "" {
				entry.exits[event.ExitReason]++
			}
		case StepEventCompleted:
			entry.completed++
			entry.duration += event.Duration
		}
	}

	counters := make([]models.RawStepCounters, 0, len(data.Steps))

	for _, step := range data.Steps {
		entry := byStep[step.StepID]

		var avg time.Duration
		if entry.completed > 0 {
			avg = entry.duration / time.Duration(entry.completed)
		}

		counters = append(counters, models.RawStepCounters{
			StepID:          step.StepID,
			Position:        step.Position,
			Entered:         entry.entered,
			Exited:          entry.exited,
			Completed:       entry.completed,
			AverageDuration: avg,
			Exits:           entry.exits,
		})
	}

	sort.SliceStable(counters, func(i, j int) bool {
		return counters[i].Position < counters[j].Position
	})

	return counters, nil
}

// EnrollmentsBySource counts stored enrollments inside the range per source.
func (r *WorkflowDataRepository) EnrollmentsBySource(_ context.Context, workflowID string, tr models.TimeRange) (map[models.EnrollmentSource]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := r.load(workflowID)
	if err != nil {
		return nil, err
	}

	sources := make(map[models.EnrollmentSource]int64)

	for _, enrollment := range data.Enrollments {
		if tr.Contains(enrollment.OccurredAt) {
			sources[enrollment.Source]++
		}
	}

	return sources, nil
}

// SaveSnapshot writes one snapshot document.
func (r *WorkflowDataRepository) SaveSnapshot(_ context.Context, snapshot *models.MetricsSnapshot) error {
	if snapshot == nil {
		return persistence.ErrNilSnapshot
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := r.snapshotDir(snapshot.WorkflowID)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	err = os.WriteFile(filepath.Join(dir, snapshot.ID+".json"), payload, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}

// Snapshots loads all snapshots computed inside the range, oldest first.
func (r *WorkflowDataRepository) Snapshots(_ context.Context, workflowID string, tr models.TimeRange) ([]*models.MetricsSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.snapshotDir(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.MetricsSnapshot{}, nil
		}

		return nil, &persistence.QueryError{Op: "Snapshots", WorkflowID: workflowID, Err: err}
	}

	snapshots := make([]*models.MetricsSnapshot, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		payload, err := os.ReadFile(filepath.Join(r.snapshotDir(workflowID), entry.Name()))
		if err != nil {
			return nil, &persistence.QueryError{Op: "Snapshots", WorkflowID: workflowID, Err: err}
		}

		var snapshot models.MetricsSnapshot

		err = json.Unmarshal(payload, &snapshot)
		if err != nil {
			return nil, &persistence.QueryError{Op: "Snapshots", WorkflowID: workflowID, Err: err}
		}

		if tr.Contains(snapshot.ComputedAt) {
			snapshots = append(snapshots, &snapshot)
		}
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].ComputedAt.Before(snapshots[j].ComputedAt)
	})

	return snapshots, nil
}
