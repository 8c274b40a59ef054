package store

import (
	"fmt"
	"time"

	"taskgen/internal/model"
)

// ExportLibrary loads every cataloged task in full for a library dump.
func (s *Store) ExportLibrary() (model.LibraryExport, error) {
	metas, err := s.ListTasks("")
	if err != nil {
		return model.LibraryExport{}, fmt.Errorf("list tasks: %w", err)
	}

	exp := model.LibraryExport{
		ExportedAt: time.Now().UTC(),
		TaskCount:  len(metas),
		Tasks:      make([]model.Task, 0, len(metas)),
	}
	for _, m := range metas {
		t, err := s.LoadTask(m.TaskID)
		if err != nil {
			return model.LibraryExport{}, fmt.Errorf("load task %s: %w", m.TaskID, err)
		}
		exp.Tasks = append(exp.Tasks, *t)
	}
	return exp, nil
}
