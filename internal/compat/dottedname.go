package compat

import (
	"os"
	"strconv"
	"strings"
)

const dottedNameEnv = "RCC_CANONICALIZE_DOTTED_TOOL_NAMES"

// DottedNameWhitelist lists tool base-names eligible for dotted-name
// canonicalization: "{prefix}.{base}" splits into base plus a {server:
// prefix} argument.
var DottedNameWhitelist = map[string]bool{
	"search":  true,
	"fetch":   true,
	"execute": true,
	"read":    true,
	"write":   true,
}

// DottedNamesEnabled reports whether canonicalization is turned on via
// environment flag. Off by default.
func DottedNamesEnabled() bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(dottedNameEnv)))
	return err == nil && v
}

// CanonicalizeDottedName splits a "{prefix}.{base}" tool name into its
// base name and originating server prefix when the base is on the
// whitelist. The second return value is false when no split applies.
func CanonicalizeDottedName(name string) (base string, server string, ok bool) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return name, "", false
	}
	prefix, base := name[:idx], name[idx+1:]
	if !DottedNameWhitelist[base] {
		return name, "", false
	}
	return base, prefix, true
}

// ApplyDottedNameCanonicalization mutates a tool-call's arguments map in
// place, adding {"server": prefix} when the function name is canonicalized,
// and returns the (possibly rewritten) function name.
func ApplyDottedNameCanonicalization(functionName string, arguments map[string]any) string {
	if !DottedNamesEnabled() {
		return functionName
	}
	base, server, ok := CanonicalizeDottedName(functionName)
	if !ok {
		return functionName
	}
	arguments["server"] = server
	return base
}
