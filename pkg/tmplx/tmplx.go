// Package tmplx wraps text/template with a small function set used for
// user-facing strings.
package tmplx

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

var (
	ErrRenderTemplate = errors.New("tmplx: render error")
	ErrParseTemplate  = errors.New("tmplx: parse error")
)

type Template struct {
	tmpl *template.Template
}

type Options struct {
	sample any
	check  func(string) error
	funcs  template.FuncMap
}

type Option func(*Options) error

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"default":  defaultFunc,
		"quote":    quoteFunc,
		"json":     jsonFunc,
		"truncate": truncateFunc,
		"plural":   pluralFunc,
		"title":    titleFunc,
	}
}

func WithTemplateFunc(name string, fn any) Option {
	return func(o *Options) error {
		if name == "" {
			return fmt.Errorf("%w: empty func name", ErrParseTemplate)
		}
		o.funcs[name] = fn
		return nil
	}
}

// WithSample renders sample once at parse time and hands the output to check.
func WithSample(sample any, check func(string) error) Option {
	return func(o *Options) error {
		o.sample = sample
		o.check = check
		return nil
	}
}

func MustParse(name, text string, opts ...Option) *Template {
	t, err := Parse(name, text, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func Parse(name, text string, args ...Option) (*Template, error) {
	opts := &Options{funcs: defaultFuncs()}
	for _, arg := range args {
		if err := arg(opts); err != nil {
			return nil, err
		}
	}

	tmpl, err := template.New(name).
		Option("missingkey=zero").
		Funcs(opts.funcs).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseTemplate, err)
	}

	t := &Template{tmpl: tmpl}
	if opts.check != nil {
		out, err := t.Render(opts.sample)
		if err != nil {
			return nil, err
		}
		if err := opts.check(out); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrParseTemplate, name, err)
		}
	}
	return t, nil
}

func (t *Template) Name() string {
	return t.tmpl.Name()
}

func (t *Template) Render(data any) (string, error) {
	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderTemplate, err)
	}
	return sb.String(), nil
}

func defaultFunc(def any, value any) any {
	if value == nil || cast.ToString(value) == "" {
		return def
	}
	return value
}

func quoteFunc(s any) (string, error) {
	return jsonFunc(cast.ToString(s))
}

func jsonFunc(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// truncateFunc cuts s to at most n runes, ending with an ellipsis when cut.
func truncateFunc(n any, s any) string {
	str := cast.ToString(s)
	limit := cast.ToInt(n)
	if limit <= 0 || utf8.RuneCountInString(str) <= limit {
		return str
	}
	runes := []rune(str)
	return string(runes[:limit-1]) + "…"
}

// pluralFunc picks one or many by count.
func pluralFunc(count any, one, many string) string {
	if cast.ToInt64(count) == 1 {
		return one
	}
	return many
}

func titleFunc(s any) string {
	str := cast.ToString(s)
	r, size := utf8.DecodeRuneInString(str)
	if size == 0 {
		return str
	}
	return strings.ToUpper(string(r)) + str[size:]
}
