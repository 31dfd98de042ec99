package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSweepCommand_InMemory(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"sweep", "--db", ":memory:"})

	assert.NoError(t, root.Execute())
}

func TestSweepCommand_RejectsBadPort(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"sweep", "--db", ":memory:", "--port", "70000"})

	assert.ErrorContains(t, root.Execute(), "out of range")
}
