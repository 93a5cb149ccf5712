package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loykin/deployr/internal/project"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (project.Config, error) {
	var (
		p         project.Config
		pid       sql.NullInt64
		lastRunAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &p.Path, &p.RunCommand,
		&p.Exec.IsRunning, &pid, &lastRunAt, &p.Exec.Status, &p.Exec.LogFile)
	if err != nil {
		return project.Config{}, err
	}
	if pid.Valid {
		v := int(pid.Int64)
		p.Exec.PID = &v
	}
	if lastRunAt.Valid {
		t := lastRunAt.Time.UTC()
		p.Exec.LastRunAt = &t
	}
	return p, nil
}

// buildExecUpdate renders the SET clauses for a partial execution-info
// update. next yields the placeholder for the i-th argument (1-based), so
// the same builder serves "?" and "$n" dialects. Setting IsRunning=false
// clears the pid column: pid is non-NULL iff is_running.
func buildExecUpdate(u ExecUpdate, next func(int) string) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", col, next(len(args))))
	}
	if u.IsRunning != nil {
		add("is_running", *u.IsRunning)
		if !*u.IsRunning {
			sets = append(sets, "pid = NULL")
		}
	}
	if u.PID != nil && (u.IsRunning == nil || *u.IsRunning) {
		add("pid", *u.PID)
	}
	if u.LastRunAt != nil {
		add("last_run_at", u.LastRunAt.UTC())
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.LogFile != nil {
		add("log_file", *u.LogFile)
	}
	return sets, args
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func statusOrDefault(s string) string {
	if s == "" {
		return project.StatusStopped
	}
	return s
}
