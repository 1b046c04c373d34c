// Package envconfig collects the environment variables the server and CLI
// honor. LoadConfig is called once at startup; the package-level vars are
// read-only afterwards.
package envconfig

import (
	"fmt"
	"net"
	"os"
	"strings"
)

var (
	// Set via TOKENIZER_DEBUG in the environment
	Debug bool
	// Set via TOKENIZER_TRACE in the environment
	Trace bool
	// Set via TOKENIZER_HOST in the environment
	Host string
	// Set via TOKENIZER_ORIGINS in the environment
	AllowOrigins []string
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"TOKENIZER_DEBUG":   {"TOKENIZER_DEBUG", Debug, "Show additional debug information (e.g. TOKENIZER_DEBUG=1)"},
		"TOKENIZER_TRACE":   {"TOKENIZER_TRACE", Trace, "Log every encode/decode call"},
		"TOKENIZER_HOST":    {"TOKENIZER_HOST", Host, "Bind address for the tokenizer server (default 127.0.0.1:11451)"},
		"TOKENIZER_ORIGINS": {"TOKENIZER_ORIGINS", AllowOrigins, "A comma separated list of allowed origins"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

var defaultAllowOrigins = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

func LoadConfig() {
	if debug := clean("TOKENIZER_DEBUG"); debug != "" {
		Debug = true
	}

	if trace := clean("TOKENIZER_TRACE"); trace != "" {
		Trace = true
	}

	Host = clean("TOKENIZER_HOST")
	if Host == "" {
		Host = "127.0.0.1:11451"
	} else if _, _, err := net.SplitHostPort(Host); err != nil {
		Host = net.JoinHostPort(Host, "11451")
	}

	if origins := clean("TOKENIZER_ORIGINS"); origins != "" {
		AllowOrigins = strings.Split(origins, ",")
	}
	for _, allowOrigin := range defaultAllowOrigins {
		AllowOrigins = append(AllowOrigins,
			fmt.Sprintf("http://%s", allowOrigin),
			fmt.Sprintf("https://%s", allowOrigin),
			fmt.Sprintf("http://%s:*", allowOrigin),
			fmt.Sprintf("https://%s:*", allowOrigin),
		)
	}
}

func clean(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
