package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMessageDefaults(t *testing.T) {
	m := NewMessage(RoleUser, "hello")

	assert.Equal(t, RoleUser, m.Role)
	assert.Equal(t, StatusComplete, m.Status)
	assert.Equal(t, "hello", m.DisplayText)
	assert.Equal(t, "hello", m.ProcessedText)
	assert.False(t, m.CreatedAt.IsZero())
	assert.NotEqual(t, m.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestNewMessageOptions(t *testing.T) {
	m := NewMessage(RoleAssistant, "", WithStatus(StatusPending))
	assert.Equal(t, StatusPending, m.Status)
}

func TestContextClone(t *testing.T) {
	orig := Context{
		Notes:      []string{"roadmap"},
		Selections: []string{"picked text"},
	}
	clone := orig.Clone()

	clone.Notes[0] = "changed"
	assert.Equal(t, "roadmap", orig.Notes[0], "clone must not alias the original")
}

func TestContextIsEmpty(t *testing.T) {
	assert.True(t, Context{}.IsEmpty())
	assert.False(t, Context{Tags: []string{"x"}}.IsEmpty())
}
