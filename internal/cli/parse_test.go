package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testStringFlag  = StringFlag{Name: "string", Shorthand: "s", DefValue: "default"}
	testBoolFlag    = BoolFlag{Name: "bool", DefValue: false}
	testIntFlag     = IntFlag{Name: "int", DefValue: 1}
	testUint64Flag  = Uint64Flag{Name: "uint64", DefValue: 2}
	testFloat64Flag = Float64Flag{Name: "float64", DefValue: 0.5}
	testHiddenFlag  = StringFlag{Name: "hidden", Hidden: true}
)

func TestParseFlags(t *testing.T) {
	var parseErr error
	SetParseErrorHandle(func(err error) { parseErr = err })
	defer SetParseErrorHandle(nil)

	root := &cobra.Command{Use: "root"}
	var ran bool
	child := &cobra.Command{
		Use: "child",
		Run: func(cmd *cobra.Command, args []string) {
			ran = true
			assert.Equal(t, "value", GetStringFlagValue(cmd, testStringFlag))
			assert.True(t, GetBoolFlagValue(cmd, testBoolFlag))
			assert.Equal(t, 1, GetIntFlagValue(cmd, testIntFlag))
			assert.EqualValues(t, 7, GetUint64FlagValue(cmd, testUint64Flag))
			assert.Equal(t, 0.25, GetFloat64FlagValue(cmd, testFloat64Flag))

			assert.True(t, IsFlagChanged(cmd, testStringFlag))
			assert.False(t, IsFlagChanged(cmd, testIntFlag))
			assert.False(t, IsPersistentFlagChanged(cmd, testStringFlag))
		},
	}
	root.AddCommand(child)
	require.NoError(t, RegisterPFlags(root, []Flag{testStringFlag}))
	require.NoError(t, RegisterFlags(child, []Flag{testBoolFlag, testIntFlag, testUint64Flag, testFloat64Flag, testHiddenFlag}))

	root.SetArgs([]string{"child", "-s", "value", "--bool", "--uint64", "7", "--float64", "0.25"})
	require.NoError(t, root.Execute())
	require.True(t, ran)
	require.NoError(t, parseErr)
	assert.True(t, child.Flags().Lookup(testHiddenFlag.Name).Hidden)
}

func TestParseErrorHandle(t *testing.T) {
	var parseErr error
	SetParseErrorHandle(func(err error) { parseErr = err })
	defer SetParseErrorHandle(nil)

	cmd := &cobra.Command{Use: "test"}
	require.NoError(t, RegisterFlags(cmd, []Flag{testIntFlag}))

	assert.Equal(t, "", GetStringFlagValue(cmd, testStringFlag))
	assert.Error(t, parseErr)
}
