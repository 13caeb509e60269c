package repositoryimpl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/cerr"
	"github.com/kazz187/voicetask/pkg/storage"
)

var _ task.Repository = (*FileRepository)(nil)

// FileRepository keeps the whole task list in a single object of the
// given storage. The encoding follows the file extension: YAML for .yaml
// and .yml, JSON otherwise.
type FileRepository struct {
	storage storage.Storage
	path    string
	yaml    bool
	now     func() time.Time
}

func NewFileRepository(s storage.Storage, path string) *FileRepository {
	ext := strings.ToLower(filepath.Ext(path))
	return &FileRepository{
		storage: s,
		path:    path,
		yaml:    ext == ".yaml" || ext == ".yml",
		now:     time.Now,
	}
}

// Path is the storage path of the task file.
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Load(ctx context.Context) ([]*task.Task, bool, error) {
	data, err := r.storage.Read(ctx, r.path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, cerr.WrapStorageReadError("tasks", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	records, err := r.decode(data)
	if err != nil {
		r.quarantine(ctx, data)
		return nil, false, cerr.NewError(cerr.DataLoss, "task file is corrupt", fmt.Errorf("failed to decode %s: %w", r.path, err))
	}

	now := r.now()
	tasks := make([]*task.Task, 0, len(records))
	seen := make(map[string]bool, len(records))
	migrated := false
	for i := range records {
		t, m := records[i].toTask(now)
		if seen[t.ID] {
			records[i].ID = ""
			t, _ = records[i].toTask(now)
			m = true
		}
		seen[t.ID] = true
		migrated = migrated || m
		tasks = append(tasks, t)
	}
	return tasks, migrated, nil
}

func (r *FileRepository) Save(ctx context.Context, tasks []*task.Task) error {
	records := make([]record, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, newRecord(t))
	}
	data, err := r.encode(records)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal tasks: %w", err))
	}
	if err := r.storage.Write(ctx, r.path, data); err != nil {
		return cerr.WrapStorageWriteError("tasks", err)
	}
	return nil
}

// Backup copies the current task file next to itself and returns the
// backup's path.
func (r *FileRepository) Backup(ctx context.Context) (string, error) {
	dst := r.path + ".backup"
	if err := storage.Copy(ctx, r.storage, r.path, dst); err != nil {
		return "", cerr.WrapStorageReadError("tasks", err)
	}
	return dst, nil
}

// quarantine keeps an unreadable file around before the store starts
// overwriting it.
func (r *FileRepository) quarantine(ctx context.Context, data []byte) {
	dst := r.path + ".corrupt"
	if err := r.storage.Write(ctx, dst, data); err != nil {
		slog.ErrorContext(ctx, "failed to preserve corrupt task file", "path", dst, "error", err)
		return
	}
	slog.WarnContext(ctx, "preserved corrupt task file", "path", dst)
}

func (r *FileRepository) decode(data []byte) ([]record, error) {
	var records []record
	if r.yaml {
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *FileRepository) encode(records []record) ([]byte, error) {
	if r.yaml {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
