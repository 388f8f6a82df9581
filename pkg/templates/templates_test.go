package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	tpl, ok := Get("moving")
	require.True(t, ok)
	assert.Equal(t, "Moving Checklist", tpl.Title)
	assert.NotEmpty(t, tpl.Tasks)

	tpl, ok = Get("MOVING")
	require.True(t, ok)
	assert.Equal(t, "Moving Checklist", tpl.Title)

	_, ok = Get("divorce")
	assert.False(t, ok)
}

func TestTypes(t *testing.T) {
	types := Types()
	assert.Len(t, types, 7)
	assert.Equal(t, Custom, types[len(types)-1])
	assert.Contains(t, types, "moving")
	assert.Contains(t, types, "new_job")
	assert.Contains(t, types, "buying_car")
	assert.Contains(t, types, "buying_home")
	assert.Contains(t, types, "getting_married")
	assert.Contains(t, types, "travel")
}

func TestTasksReturnsCopy(t *testing.T) {
	tasks, err := Tasks("travel")
	require.NoError(t, err)
	require.NotEmpty(t, tasks)

	tasks[0].Done = true

	again, err := Tasks("travel")
	require.NoError(t, err)
	assert.False(t, again[0].Done)
}

func TestTasksUnknownType(t *testing.T) {
	_, err := Tasks("sabbatical")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available")
}

func TestCustomTemplateIsEmpty(t *testing.T) {
	tasks, err := Tasks(Custom)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
