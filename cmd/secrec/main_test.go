package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secrec/internal/ir"
	"secrec/internal/optimize"
)

func TestBuildTestdataBranch(t *testing.T) {
	program, err := build("testdata/branch.secir")
	require.NoError(t, err)
	require.Len(t, program.Procedures, 1)

	entry := program.EntryBlock()
	assert.NotNil(t, entry)
	assert.NotNil(t, program.ExitBlock())
}

func TestBuildTestdataBranchSurvivesOptimization(t *testing.T) {
	program, err := build("testdata/branch.secir")
	require.NoError(t, err)

	pipeline := optimize.NewPipeline()
	require.NoError(t, pipeline.Run(program))
	assert.NotEmpty(t, ir.Print(program))
}

func TestBuildUnknownFile(t *testing.T) {
	_, err := build("testdata/does-not-exist.secir")
	assert.Error(t, err)
}
