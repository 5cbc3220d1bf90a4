package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/thermo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capture = `Booting DAQ...
50000,1000,450,320
51000,1000,451,321
52000,1000,xx,321
1,2,3
53000,1000,452,322
`

func TestParseCapture(t *testing.T) {
	var out bytes.Buffer
	summary, err := parseCapture(context.Background(), strings.NewReader(capture), &out)
	require.NoError(t, err)

	assert.Equal(t, parseSummary{Samples: 3, Noise: 1, ParseErrors: 2}, summary)
	assert.Contains(t, out.String(), "p1=50000 p2=1000 t1=450 t2=320")
	assert.Contains(t, out.String(), `malformed: "1,2,3"`)
}

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.txt")
	require.NoError(t, os.WriteFile(path, []byte(capture), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"parse", "--quiet", path})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "samples: 3, noise: 1, parse errors: 2\n", out.String())
}

func TestParseCommandStdin(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("50000,1000,450,320\n"))
	cmd.SetArgs([]string{"parse", "-"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "samples: 1, noise: 0, parse errors: 0")
}

func TestPropertyQuery(t *testing.T) {
	q, err := propertyQuery(450, 151325, 0, true, false)
	require.NoError(t, err)
	assert.Equal(t, thermo.TP(450, 151325), q)

	q, err = propertyQuery(0, 102325, 1, false, true)
	require.NoError(t, err)
	assert.Equal(t, thermo.PQ(102325, 1), q)

	_, err = propertyQuery(0, 102325, 0, false, false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestPropertiesCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"properties", "--temperature", "300", "--pressure", "3000000"})

	require.NoError(t, cmd.Execute())
	// IF97 region 1 verification point: h = 115.331273 kJ/kg
	assert.Contains(t, out.String(), "enthalpy: 115331.27")
}

func TestPropertiesCommandOutOfRange(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"properties", "--temperature", "2000", "--pressure", "101325"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, thermo.IsPropertyError(err))
}
