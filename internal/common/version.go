package common

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Build stamps, set with -ldflags "-X github.com/ternarybob/prinde/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// VersionFile is read from beside the executable on startup when present.
const VersionFile = ".version"

// BuildInfo is the version block reported by /api/version and the browser status message.
type BuildInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	GitCommit string `json:"git_commit"`
}

func GetVersion() string { return Version }
func GetBuild() string   { return Build }

// GetBuildInfo returns the current build stamps.
func GetBuildInfo() BuildInfo {
	return BuildInfo{Version: Version, Build: Build, GitCommit: GitCommit}
}

// GetFullVersion formats the stamps for the version command.
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile overrides the stamps from VersionFile beside the executable.
// Deploy scripts write either a bare version or version=/build=/commit= lines.
func LoadVersionFromFile() string {
	exePath, err := os.Executable()
	if err != nil {
		return Version
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(exePath), VersionFile))
	if err != nil {
		return Version
	}

	applyVersionFile(data)
	return Version
}

func applyVersionFile(data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			Version = line
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "version":
			Version = value
		case "build":
			Build = value
		case "commit", "git_commit":
			GitCommit = value
		}
	}
}
