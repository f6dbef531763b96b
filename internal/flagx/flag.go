// Package flagx lets several components read their own command-line flags
// from a shared argument list without tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the allowed flags (and their values) from args.
// Both "-f value" and "-f=value" forms are recognised; a following token that
// starts with "-" is never consumed as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigFile returns the JSON config path given via -c or -config, or "".
func ConfigFile(args []string) string {
	return lookupString(args, "config", "c", "path to JSON config file")
}

// EnvFile returns the dotenv path given via -env, or "".
func EnvFile(args []string) string {
	return lookupString(args, "env", "", "path to .env file")
}

func lookupString(args []string, long, short, usage string) string {
	allowed := []string{"-" + long, "--" + long}
	if short != "" {
		allowed = append(allowed, "-"+short, "--"+short)
	}

	var value string
	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&value, long, "", usage)
	if short != "" {
		fs.StringVar(&value, short, "", usage)
	}
	_ = fs.Parse(FilterArgs(args, allowed))

	return value
}
