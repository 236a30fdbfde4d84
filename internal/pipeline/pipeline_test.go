package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnxlang/cnxc/internal/fsabs"
)

func TestRunEndToEndSingleFile(t *testing.T) {
	src := `
public void reset(u32 counter) {
	counter <- 0;
}
`
	fsys := fsabs.NewMemory("/proj/src/main.cnx", []byte(src))
	result, err := Run(fsys, Options{
		Roots:   []string{"/proj/src/main.cnx"},
		OutDir:  "/proj/out",
		NoCache: true,
		Target:  "generic",
	})
	require.NoError(t, err)
	require.False(t, result.Diags.HasErrors(), "unexpected errors: %v", result.Diags.Errors())
	require.Len(t, result.Files, 1)

	body, err := fsys.ReadFile(result.Files[0].BodyPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "uint32_t *counter")
	assert.False(t, result.CppMode, "expected C mode for a source with no C++ evidence")
}

func TestRunNoSourcesWarns(t *testing.T) {
	fsys := fsabs.NewMemory("", nil)
	result, err := Run(fsys, Options{Roots: nil, OutDir: "/proj/out", NoCache: true})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Diags.Warnings(), "expected a no-sources warning")
}

func TestRunParseOnlySkipsGeneration(t *testing.T) {
	src := `
public u32 identity(u32 x) {
	return x;
}
`
	fsys := fsabs.NewMemory("/proj/src/main.cnx", []byte(src))
	result, err := Run(fsys, Options{
		Roots:     []string{"/proj/src/main.cnx"},
		OutDir:    "/proj/out",
		NoCache:   true,
		ParseOnly: true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Files, "expected no generated files in parse-only mode")
}

func TestRunCrossFileModificationPropagates(t *testing.T) {
	callerSrc := `
#include "callee.cnx"

void outer(u32 value) {
	bump(value);
}
`
	calleeSrc := `
public void bump(u32 v) {
	v <- v + 1;
}
`
	fsys := fsabs.NewMemory("/proj/src/caller.cnx", []byte(callerSrc))
	require.NoError(t, fsys.WriteFile("/proj/src/callee.cnx", []byte(calleeSrc)))

	result, err := Run(fsys, Options{
		Roots:   []string{"/proj/src/caller.cnx"},
		OutDir:  "/proj/out",
		NoCache: true,
	})
	require.NoError(t, err)
	require.False(t, result.Diags.HasErrors(), "unexpected errors: %v", result.Diags.Errors())

	var outerBody []byte
	for _, f := range result.Files {
		if f.Source == "/proj/src/caller.cnx" {
			outerBody, err = fsys.ReadFile(f.BodyPath)
			require.NoError(t, err)
		}
	}
	require.NotNil(t, outerBody, "caller.cnx was not generated")
	assert.Contains(t, string(outerBody), "uint32_t *value",
		"expected outer's forwarded argument to propagate as modified")
}
