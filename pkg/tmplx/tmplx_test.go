package tmplx

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("with template func", func(t *testing.T) {
		tmpl, err := Parse("test", `{{custom}}`,
			WithTemplateFunc("custom", func() string { return "custom" }))
		require.NoError(t, err)

		out, err := tmpl.Render(nil)
		require.NoError(t, err)
		assert.Equal(t, "custom", out)
		assert.Equal(t, "test", tmpl.Name())
	})

	t.Run("merge with default funcs", func(t *testing.T) {
		tmpl, err := Parse("test", `{{custom}} {{quote "test"}}`,
			WithTemplateFunc("custom", func() string { return "custom" }))
		require.NoError(t, err)

		out, err := tmpl.Render(nil)
		require.NoError(t, err)
		assert.Equal(t, `custom "test"`, out)
	})

	t.Run("sample passes", func(t *testing.T) {
		_, err := Parse("test", `{{.From}} said hi`, WithSample(map[string]string{"From": "bob"}, func(s string) error {
			if !strings.HasPrefix(s, "bob") {
				return errors.New("sender missing")
			}
			return nil
		}))
		require.NoError(t, err)
	})

	t.Run("sample fails", func(t *testing.T) {
		_, err := Parse("test", `someone said hi`, WithSample(map[string]string{"From": "bob"}, func(s string) error {
			if !strings.Contains(s, "bob") {
				return errors.New("sender missing")
			}
			return nil
		}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParseTemplate)
		assert.Contains(t, err.Error(), "sender missing")
	})

	t.Run("invalid syntax", func(t *testing.T) {
		_, err := Parse("test", `Hello {{.name`)
		assert.ErrorIs(t, err, ErrParseTemplate)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := Parse("test", `Hello {{.name | nope}}`)
		assert.ErrorIs(t, err, ErrParseTemplate)
	})

	t.Run("missing key renders empty", func(t *testing.T) {
		out, err := MustParse("test", `Hello {{.name}}`).Render(map[string]string{})
		require.NoError(t, err)
		assert.Equal(t, "Hello ", out)
	})

	t.Run("must parse panics", func(t *testing.T) {
		assert.Panics(t, func() { MustParse("test", `{{`) })
	})
}

func TestFuncs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		data any
		want string
	}{
		{"default on empty", `{{default "anonymous" .name}}`, map[string]any{"name": ""}, "anonymous"},
		{"default on value", `{{default "anonymous" .name}}`, map[string]any{"name": "john"}, "john"},
		{"truncate short", `{{truncate 5 .s}}`, map[string]any{"s": "abc"}, "abc"},
		{"truncate long", `{{truncate 5 .s}}`, map[string]any{"s": "abcdefgh"}, "abcd…"},
		{"truncate runes", `{{truncate 3 .s}}`, map[string]any{"s": "xin chào"}, "xi…"},
		{"plural one", `{{.n}} {{plural .n "like" "likes"}}`, map[string]any{"n": 1}, "1 like"},
		{"plural many", `{{.n}} {{plural .n "like" "likes"}}`, map[string]any{"n": 3}, "3 likes"},
		{"plural string count", `{{plural .n "like" "likes"}}`, map[string]any{"n": "1"}, "like"},
		{"title", `{{title .s}}`, map[string]any{"s": "élan"}, "Élan"},
		{"json", `{{json .v}}`, map[string]any{"v": []int{1, 2}}, "[1,2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MustParse(tt.name, tt.text).Render(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}
