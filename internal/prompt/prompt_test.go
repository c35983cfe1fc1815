package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskSequence(t *testing.T) {
	var out bytes.Buffer
	s := NewSession(strings.NewReader("my app\nmy-app\n\nrails\ndjango-react\n"), &out)

	name, err := s.Ask(Interactive{
		Prompt:   "Project name",
		Required: true,
		Validate: func(v string) error {
			if strings.Contains(v, " ") {
				return errors.New("no spaces allowed")
			}
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "my-app", name)

	lang, err := s.Ask(Interactive{Prompt: "Language", Default: "javascript", Options: []string{"javascript", "typescript"}})
	require.NoError(t, err)
	assert.Equal(t, "javascript", lang)

	stack, err := s.Ask(Interactive{Prompt: "Stack", Options: []string{"mern", "django-react"}, Required: true})
	require.NoError(t, err)
	assert.Equal(t, "django-react", stack)

	assert.Contains(t, out.String(), "Project name (required): ")
	assert.Contains(t, out.String(), "Language (default: javascript, options: javascript, typescript): ")
}

func TestAskLastLineWithoutNewline(t *testing.T) {
	s := NewSession(strings.NewReader("bun"), &bytes.Buffer{})
	got, err := s.Ask(Interactive{Prompt: "Package manager", Options: []string{"npm", "bun"}})
	require.NoError(t, err)
	assert.Equal(t, "bun", got)
}

func TestAskClosedInput(t *testing.T) {
	s := NewSession(strings.NewReader(""), &bytes.Buffer{})
	_, err := s.Ask(Interactive{Prompt: "Project name", Required: true})
	assert.ErrorContains(t, err, "input closed")

	s = NewSession(strings.NewReader("nope"), &bytes.Buffer{})
	_, err = s.Ask(Interactive{Prompt: "Stack", Options: []string{"mern"}})
	assert.Error(t, err)
}

func TestAskOptionalEmpty(t *testing.T) {
	s := NewSession(strings.NewReader("\n"), &bytes.Buffer{})
	got, err := s.Ask(Interactive{Prompt: "Template"})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestAskBadDefault(t *testing.T) {
	s := NewSession(strings.NewReader("\n"), &bytes.Buffer{})
	_, err := s.Ask(Interactive{Prompt: "x", Default: "c", Options: []string{"a", "b"}})
	assert.Error(t, err)
}
