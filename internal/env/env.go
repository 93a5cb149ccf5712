package env

import (
	"bufio"
	"os"
	"strings"
)

type Var map[string]string

// Env composes a child environment from the OS environment plus a
// project-local overlay. The OS snapshot is cached on first use.
type Env struct {
	base Var
}

func New() *Env { return &Env{} }

// FromOS caches the current process environment as the base.
func (e *Env) FromOS() {
	base := make(Var)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			if k == "" {
				continue
			}
			base[k] = kv[i+1:]
		}
	}
	e.base = base
}

// Merge returns the final environment in "K=V" form: OS base first, then
// overlay entries, overlay winning on key collision.
func (e *Env) Merge(overlay Var) []string {
	if e.base == nil {
		e.FromOS()
	}
	m := make(Var, len(e.base)+len(overlay))
	for k, v := range e.base {
		m[k] = v
	}
	for k, v := range overlay {
		if k == "" {
			continue
		}
		m[k] = v
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}

// LoadOverlay parses a KEY=VALUE file such as a project's .env.
// Missing file is not an error: it returns an empty map. Blank lines,
// comments, and lines without '=' are skipped rather than aborting; a
// single pair of surrounding quotes is stripped from values.
func LoadOverlay(path string) (Var, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Var{}, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	vars := make(Var)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		i := strings.IndexByte(line, '=')
		if i <= 0 {
			continue // best-effort: skip malformed lines
		}
		k := strings.TrimSpace(line[:i])
		v := strings.TrimSpace(line[i+1:])
		if n := len(v); n >= 2 {
			if (v[0] == '"' && v[n-1] == '"') || (v[0] == '\'' && v[n-1] == '\'') {
				v = v[1 : n-1]
			}
		}
		vars[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}
