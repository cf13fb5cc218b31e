package migration

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

const upTemplate = `-- {{.Slug}} ({{.Version}})
{{- if .Description}}
-- {{.Description}}
{{- end}}

-- forward SQL

`

const downTemplate = `-- {{.Slug}} ({{.Version}}) rollback
{{- if .Description}}
-- undoes: {{.Description}}
{{- end}}

-- rollback SQL

`

// Pair is a freshly created up/down migration file pair
type Pair struct {
	Version     string
	Slug        string
	Description string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair into dir. The version prefix
// is the creation timestamp so files sort in application order.
func CreateMigration(dir, name, description string) (*Pair, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q contains no usable characters", name)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating migrations directory: %w", err)
	}

	version := time.Now().Format("20060102150405")
	base := version + "_" + slug

	p := &Pair{
		Version:     version,
		Slug:        slug,
		Description: description,
		UpPath:      filepath.Join(dir, base+".up.sql"),
		DownPath:    filepath.Join(dir, base+".down.sql"),
	}

	if err := renderTo(p.UpPath, upTemplate, p); err != nil {
		return nil, err
	}
	if err := renderTo(p.DownPath, downTemplate, p); err != nil {
		// do not leave a half pair behind
		_ = os.Remove(p.UpPath)
		return nil, err
	}
	return p, nil
}

func renderTo(path, tmpl string, p *Pair) error {
	t, err := template.New("migration").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("parsing migration template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return fmt.Errorf("rendering migration template: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// slugify lowers the name and collapses everything that is not alphanumeric
// into single underscores, matching the golang-migrate file convention
func slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the base names of the up migrations in dir, in
// lexical (and therefore version) order
func ListMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok {
			names = append(names, base)
		}
	}
	return names, nil
}
