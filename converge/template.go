package converge

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
)

// Template ensures a file holds the rendering of Source with Data.
type Template struct {
	Path   string
	Source string
	Data   any
	Funcs  template.FuncMap
	Ownership
}

func (t Template) Kind() string { return "template" }
func (t Template) Name() string { return t.Path }

// Render executes the template.
func (t Template) Render() ([]byte, error) {
	tmpl, err := template.New(t.Path).Funcs(t.Funcs).Option("missingkey=error").Parse(t.Source)
	if err != nil {
		return nil, fmt.Errorf("could not parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t.Data); err != nil {
		return nil, fmt.Errorf("could not render template: %w", err)
	}
	return buf.Bytes(), nil
}

// Apply implements Resource.
func (t Template) Apply(ctx context.Context, h *Host) (Result, error) {
	content, err := t.Render()
	if err != nil {
		return Result{}, err
	}

	actions, err := writeFile(h, h.Path(t.Path), content, t.Ownership)
	if err != nil {
		return Result{}, err
	}
	return newResult(t, actions), nil
}

// CronFile is a Template rendered into /etc/cron.d format. Every line must
// be blank, a comment, an environment assignment or a job line with a
// schedule, a user and a command.
type CronFile struct {
	Template
}

func (c CronFile) Kind() string { return "cron_file" }

// Apply implements Resource.
func (c CronFile) Apply(ctx context.Context, h *Host) (Result, error) {
	content, err := c.Render()
	if err != nil {
		return Result{}, err
	}
	if err := ValidateCronTable(content); err != nil {
		return Result{}, err
	}

	actions, err := writeFile(h, h.Path(c.Path), content, c.Ownership)
	if err != nil {
		return Result{}, err
	}
	return newResult(c, actions), nil
}

// ValidateCronTable checks the syntax of a cron.d file.
func ValidateCronTable(content []byte) error {
	if len(content) > 0 && content[len(content)-1] != '\n' {
		return fmt.Errorf("cron table must end with a newline")
	}

	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if name, _, ok := strings.Cut(fields[0], "="); ok && name != "" && !strings.ContainsAny(name, "*/,-") {
			continue
		}

		// @daily user command
		if strings.HasPrefix(fields[0], "@") {
			if len(fields) < 3 {
				return fmt.Errorf("cron line %d: expected @schedule, user and command", i+1)
			}
			continue
		}

		if len(fields) < 7 {
			return fmt.Errorf("cron line %d: expected 5 schedule fields, user and command", i+1)
		}
		for _, f := range fields[:5] {
			if strings.Trim(f, "0123456789*/,-") != "" && !isCronName(f) {
				return fmt.Errorf("cron line %d: invalid schedule field %q", i+1, f)
			}
		}
	}
	return nil
}

// isCronName accepts month and weekday names such as "mon" or "jan-mar".
func isCronName(f string) bool {
	return strings.Trim(strings.ToLower(f), "abcdefghijklmnopqrstuvwxyz,-") == ""
}
