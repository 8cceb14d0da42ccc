// Package migrations embeds the trade archive schemas and applies them
// statement by statement through a caller-supplied executor.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var schemas embed.FS

// Dialect names a schema directory.
type Dialect string

const (
	Postgres   Dialect = "postgres"
	Clickhouse Dialect = "clickhouse"
)

// Migration is one embedded schema file.
type Migration struct {
	Name string
	SQL  string
}

// ExecFunc runs a single SQL statement.
type ExecFunc func(ctx context.Context, stmt string) error

// ErrUnterminatedLiteral is returned by Statements when a quote is never closed.
var ErrUnterminatedLiteral = errors.New("unterminated string literal")

// Load returns the dialect's migrations ordered by file name.
func Load(d Dialect) ([]Migration, error) {
	entries, err := fs.ReadDir(schemas, string(d))
	if err != nil {
		return nil, fmt.Errorf("read %s migrations: %w", d, err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		data, err := fs.ReadFile(schemas, path.Join(string(d), e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Name: e.Name(), SQL: string(data)})
	}
	return out, nil
}

// Apply runs every statement of the dialect's migrations in order.
// Schema files only use IF NOT EXISTS, so Apply is safe on every startup.
func Apply(ctx context.Context, d Dialect, exec ExecFunc) error {
	ms, err := Load(d)
	if err != nil {
		return err
	}

	for _, m := range ms {
		stmts, err := Statements(m.SQL)
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		for i, stmt := range stmts {
			if err := exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s statement %d: %w", m.Name, i+1, err)
			}
		}
	}
	return nil
}

// Statements splits sql on semicolons that are outside single-quoted literals.
// Lines starting with "--" are dropped. The ClickHouse native protocol only
// accepts one statement per query.
func Statements(sql string) ([]string, error) {
	var (
		stmts  []string
		cur    strings.Builder
		quoted bool
	)
	emit := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for _, line := range strings.Split(sql, "\n") {
		if !quoted && strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for i := 0; i < len(line); i++ {
			switch c := line[i]; {
			case c == '\'':
				// '' escapes toggle twice and leave the state unchanged
				quoted = !quoted
			case c == ';' && !quoted:
				emit()
				continue
			}
			cur.WriteByte(line[i])
		}
		cur.WriteByte('\n')
	}

	if quoted {
		return nil, ErrUnterminatedLiteral
	}
	emit()
	return stmts, nil
}
