package main

import (
	"runtime/debug"
	"strings"
)

// kdbtoolVersionLine formats the "-version" output: the ldflags-injected
// version/commit/date when main was actually built with them, falling
// back to whatever `go install` or `go run` recorded in the binary's own
// build info otherwise (the common case for `go install .../kdbtool@latest`).
func kdbtoolVersionLine(version, commit, date string) string {
	v := strings.TrimSpace(version)
	c := strings.TrimSpace(commit)
	d := strings.TrimSpace(date)

	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "" || v == "dev" || v == "(devel)" {
			if mv := strings.TrimSpace(info.Main.Version); mv != "" && mv != "(devel)" {
				v = mv
			}
		}
		if c == "" || c == "unknown" {
			if rev := vcsSetting(info, "vcs.revision"); rev != "" {
				c = rev
			}
		}
		if d == "" || d == "unknown" {
			if t := vcsSetting(info, "vcs.time"); t != "" {
				d = t
			}
		}
	}

	out := v
	if out == "" {
		out = "dev"
	}
	if c != "" && c != "unknown" {
		out += " (" + c + ")"
	}
	if d != "" && d != "unknown" {
		out += " " + d
	}
	return out
}

func vcsSetting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
