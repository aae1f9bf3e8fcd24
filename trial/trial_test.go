package trial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrial(t *testing.T) {
	exp := NewExperiment("curfew pressure", "You are a parenting assistant.")

	a := NewTrial(exp.ID, "variant a")
	b := NewTrial(exp.ID, "variant b")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, exp.ID, a.ExperimentID)
	assert.Nil(t, a.CompletedAt)

	a.Complete()
	require.NotNil(t, a.CompletedAt)
	assert.False(t, a.CompletedAt.Before(a.StartedAt))
}
