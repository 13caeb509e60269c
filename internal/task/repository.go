package task

import "context"

// Repository persists the whole task collection at once.
type Repository interface {
	// Load returns the stored tasks in order. migrated reports that at
	// least one record was normalized and the collection should be
	// rewritten. A missing collection is not an error.
	Load(ctx context.Context) (tasks []*Task, migrated bool, err error)
	Save(ctx context.Context, tasks []*Task) error
}
