// Package jobs records the history of exports.
//
// Every export run by the server (and, optionally, the CLI) is stored as a
// [Job]: what was exported, how many pages it produced, how long it took and
// whether it failed. Backends:
//
//   - [MemoryStore]: in-process, for tests and single-instance servers
//   - [FileStore]: one JSON file per job, for the CLI history
//   - [MongoStore]: shared history for multi-instance deployments
//
// # Usage
//
//	job := jobs.New("Site diary", src.Hash())
//	store.Put(ctx, job)
//	result, err := runner.Execute(ctx, src, opts)
//	if err != nil {
//	    job.Fail(err)
//	} else {
//	    job.Finish(result.Pages, len(result.PDF), result.Warnings)
//	}
//	store.Put(ctx, job)
package jobs

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/diaryprint/pkg/errors"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// DefaultListLimit caps List when the caller passes a limit <= 0.
const DefaultListLimit = 50

// Job is one export.
type Job struct {
	ID         string        `json:"id" bson:"_id"`
	Title      string        `json:"title" bson:"title"`
	SourceHash string        `json:"source_hash,omitempty" bson:"source_hash,omitempty"`
	Status     Status        `json:"status" bson:"status"`
	Pages      int           `json:"pages,omitempty" bson:"pages,omitempty"`
	Bytes      int           `json:"bytes,omitempty" bson:"bytes,omitempty"`
	Warnings   []string      `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Error      string        `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at" bson:"created_at"`
	Duration   time.Duration `json:"duration,omitempty" bson:"duration,omitempty"`
}

// New creates a running job with a random ID.
func New(title, sourceHash string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Title:      title,
		SourceHash: sourceHash,
		Status:     StatusRunning,
		CreatedAt:  time.Now().UTC(),
	}
}

// Finish marks the job done.
func (j *Job) Finish(pages, size int, warnings []string) {
	j.Status = StatusDone
	j.Pages = pages
	j.Bytes = size
	j.Warnings = warnings
	j.Duration = time.Since(j.CreatedAt)
}

// Fail marks the job failed with the user-facing message of err.
func (j *Job) Fail(err error) {
	j.Status = StatusFailed
	j.Error = errors.UserMessage(err)
	j.Duration = time.Since(j.CreatedAt)
}

// Store is the interface for job history backends.
type Store interface {
	// Get returns the job with id, or an ErrCodeNotFound error.
	Get(ctx context.Context, id string) (*Job, error)

	// Put inserts or replaces a job.
	Put(ctx context.Context, job *Job) error

	// List returns up to limit jobs, newest first.
	List(ctx context.Context, limit int) ([]*Job, error)

	// Delete removes a job. Deleting a missing job is not an error.
	Delete(ctx context.Context, id string) error

	// Prune removes jobs created before cutoff and returns how many.
	Prune(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "job %s not found", id)
}

func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "invalid job id %q", id)
	}
	return nil
}

func sortNewest(list []*Job) {
	sort.SliceStable(list, func(a, b int) bool { return list[a].CreatedAt.After(list[b].CreatedAt) })
}

func limitOf(n int) int {
	if n <= 0 {
		return DefaultListLimit
	}
	return n
}
