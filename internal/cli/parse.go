package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ParseErrorHandler is called when a flag value cannot be read from a command,
// typically because the flag was never registered on it.
type ParseErrorHandler func(error)

var parseErrorHandler ParseErrorHandler

// SetParseErrorHandle installs the handler for flag lookup errors. A nil
// handler makes lookups silently fall back to the zero value.
//
//	cli.SetParseErrorHandle(func(err error) {
//		fmt.Fprintln(os.Stderr, err)
//		os.Exit(128)
//	})
func SetParseErrorHandle(f ParseErrorHandler) {
	parseErrorHandler = f
}

// lookup reads a typed value with getter, reporting failures to the parse
// error handler.
func lookup[T any](fs *pflag.FlagSet, name string, getter func(*pflag.FlagSet, string) (T, error)) T {
	val, err := getter(fs, name)
	if err != nil {
		if parseErrorHandler != nil {
			parseErrorHandler(err)
		}
		var zero T
		return zero
	}
	return val
}

// GetStringFlagValue returns the value of a string flag visible to cmd,
// including persistent flags inherited from its parents.
func GetStringFlagValue(cmd *cobra.Command, flag StringFlag) string {
	return lookup(cmd.Flags(), flag.Name, (*pflag.FlagSet).GetString)
}

// GetBoolFlagValue returns the value of a bool flag visible to cmd.
func GetBoolFlagValue(cmd *cobra.Command, flag BoolFlag) bool {
	return lookup(cmd.Flags(), flag.Name, (*pflag.FlagSet).GetBool)
}

// GetIntFlagValue returns the value of an int flag visible to cmd.
func GetIntFlagValue(cmd *cobra.Command, flag IntFlag) int {
	return lookup(cmd.Flags(), flag.Name, (*pflag.FlagSet).GetInt)
}

// GetUint64FlagValue returns the value of a uint64 flag visible to cmd.
func GetUint64FlagValue(cmd *cobra.Command, flag Uint64Flag) uint64 {
	return lookup(cmd.Flags(), flag.Name, (*pflag.FlagSet).GetUint64)
}

// GetFloat64FlagValue returns the value of a float64 flag visible to cmd.
func GetFloat64FlagValue(cmd *cobra.Command, flag Float64Flag) float64 {
	return lookup(cmd.Flags(), flag.Name, (*pflag.FlagSet).GetFloat64)
}

// IsFlagChanged reports whether the flag was set on the command line.
func IsFlagChanged(cmd *cobra.Command, flag Flag) bool {
	return cmd.Flags().Changed(getFlagName(flag))
}

// IsPersistentFlagChanged is like IsFlagChanged, restricted to the persistent
// flags declared on cmd itself.
func IsPersistentFlagChanged(cmd *cobra.Command, flag Flag) bool {
	return cmd.PersistentFlags().Changed(getFlagName(flag))
}
