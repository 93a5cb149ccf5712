package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/deployr/internal/project"
)

// PostgresStore keeps project configuration and execution info in
// PostgreSQL via the pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres store requires a dsn")
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxAge > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxAge)
	}
	s := &PostgresStore{db: db}
	if err := s.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS projects(
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT '',
		run_command TEXT NOT NULL DEFAULT '',
		is_running BOOLEAN NOT NULL DEFAULT FALSE,
		pid INTEGER,
		last_run_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'stopped',
		log_file TEXT NOT NULL DEFAULT ''
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *PostgresStore) PutProject(ctx context.Context, p project.Config) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects(id, name, path, run_command, is_running, pid, last_run_at, status, log_file)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, path=excluded.path, run_command=excluded.run_command,
			is_running=excluded.is_running, pid=excluded.pid, last_run_at=excluded.last_run_at,
			status=excluded.status, log_file=excluded.log_file;`,
		p.ID, p.Name, p.Path, p.RunCommand,
		p.Exec.IsRunning, nullInt(p.Exec.PID), nullTime(p.Exec.LastRunAt),
		statusOrDefault(p.Exec.Status), p.Exec.LogFile)
	return err
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (project.Config, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, path, run_command, is_running, pid, last_run_at, status, log_file
		FROM projects WHERE id = $1;`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Config{}, ErrNotFound
	}
	return p, err
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]project.Config, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, path, run_command, is_running, pid, last_run_at, status, log_file
		FROM projects ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []project.Config
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateExecutionInfo(ctx context.Context, id string, u ExecUpdate) error {
	sets, args := buildExecUpdate(u, func(i int) string { return fmt.Sprintf("$%d", i) })
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE projects SET %s WHERE id = $%d;`, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
