package repository

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"smart2onyma/common/config"

	"go.uber.org/zap"
)

//go:embed sql/*.sql
var embeddedTemplates embed.FS

// ErrMissingParam is returned when a query binds a parameter that was not passed
var ErrMissingParam = errors.New("missing query parameter")

// Params are the keyword parameters of a named query
type Params map[string]any

// Filters are profile filters exposed to templates as .filters
type Filters map[string]map[string]any

// DefaultTemplates returns the query templates shipped with the binary
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplatesFS returns dir as template source, or the built-in templates when empty
func TemplatesFS(dir string) fs.FS {
	if dir == "" {
		return DefaultTemplates()
	}
	return os.DirFS(dir)
}

// Engine renders named SQL templates and runs them against the source database
type Engine struct {
	db        *sql.DB
	dialect   string
	templates fs.FS
	logger    *zap.Logger

	mu      sync.Mutex
	filters Filters
	cache   map[string]*template.Template
}

// NewEngine creates a query engine for the given dialect
func NewEngine(db *sql.DB, dialect string, templates fs.FS, logger *zap.Logger) (*Engine, error) {
	if dialect != config.DialectPostgres && dialect != config.DialectOracle {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDialect, dialect)
	}
	return &Engine{
		db:        db,
		dialect:   dialect,
		templates: templates,
		logger:    logger,
		filters:   Filters{},
		cache:     make(map[string]*template.Template),
	}, nil
}

// Dialect returns the SQL dialect of the engine
func (e *Engine) Dialect() string {
	return e.dialect
}

// AddFilter exposes params to templates under .filters.<name>
func (e *Engine) AddFilter(name string, params map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[name] = params
}

// ResetFilters drops every filter
func (e *Engine) ResetFilters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters = Filters{}
}

// Render renders a template and converts its :name binds to the dialect's placeholders
func (e *Engine) Render(name string, params Params) (string, []any, error) {
	tpl, err := e.template(name)
	if err != nil {
		return "", nil, err
	}

	e.mu.Lock()
	data := make(map[string]any, len(params)+2)
	for k, v := range params {
		data[k] = v
	}
	data["dialect"] = e.dialect
	data["filters"] = e.filters
	e.mu.Unlock()

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", nil, fmt.Errorf("failed to render %s: %w", name, err)
	}

	query, args, err := bindParams(buf.String(), e.dialect, params)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", name, err)
	}
	return query, args, nil
}

// Query runs a named query and returns all rows
func (e *Engine) Query(ctx context.Context, name string, params Params) ([]Row, error) {
	query, args, err := e.Render(name, params)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Executing query", zap.String("template", name), zap.String("sql", query))

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", name, err)
	}
	return result, nil
}

// QueryOne runs a named query and returns its first row, nil when there is none
func (e *Engine) QueryOne(ctx context.Context, name string, params Params) (Row, error) {
	rows, err := e.Query(ctx, name, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (e *Engine) template(name string) (*template.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tpl, ok := e.cache[name]; ok {
		return tpl, nil
	}
	src, err := fs.ReadFile(e.templates, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	tpl, err := template.New(name).
		Option("missingkey=zero").
		Funcs(template.FuncMap{"join": joinValues}).
		Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	e.cache[name] = tpl
	return tpl, nil
}

// joinValues renders a filter list as a comma separated SQL list
func joinValues(v any) string {
	switch list := v.(type) {
	case []any:
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(list, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// bindParams replaces :name binds with $n (postgres) or :n (oracle).
// Quoted literals, "--" comments and "::" casts are left untouched.
func bindParams(query, dialect string, params Params) (string, []any, error) {
	var (
		out  strings.Builder
		args []any
	)
	src := []rune(query)
	n := len(src)

	for i := 0; i < n; i++ {
		ch := src[i]
		switch {
		case ch == '\'' || ch == '"':
			j := i + 1
			for j < n && src[j] != ch {
				j++
			}
			if j >= n {
				j = n - 1
			}
			out.WriteString(string(src[i : j+1]))
			i = j
		case ch == '-' && i+1 < n && src[i+1] == '-':
			j := i
			for j < n && src[j] != '\n' {
				j++
			}
			out.WriteString(string(src[i:j]))
			i = j - 1
		case ch == ':' && i+1 < n && src[i+1] == ':':
			out.WriteString("::")
			i++
		case ch == ':' && i+1 < n && isIdentStart(src[i+1]):
			j := i + 1
			for j < n && isIdentPart(src[j]) {
				j++
			}
			name := string(src[i+1 : j])
			value, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("%w: %s", ErrMissingParam, name)
			}
			args = append(args, value)
			if dialect == config.DialectOracle {
				out.WriteString(":" + strconv.Itoa(len(args)))
			} else {
				out.WriteString("$" + strconv.Itoa(len(args)))
			}
			i = j - 1
		default:
			out.WriteRune(ch)
		}
	}
	return out.String(), args, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
