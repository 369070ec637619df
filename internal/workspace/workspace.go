// Package workspace detects the project identity that scopes a conversation.
package workspace

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultIdentity names the conversation used outside any project.
const DefaultIdentity = "default"

// Detector resolves the current project identity.
// Priority: explicit identity > git origin > cwd basename > default.
type Detector struct {
	// Explicit pins the identity regardless of the working directory.
	Explicit string

	// FromCWD enables detection from the current working directory.
	FromCWD bool
}

// CurrentIdentity returns the identity of the active project. It never
// fails; detection problems fall through to the default identity.
func (d Detector) CurrentIdentity() string {
	if d.Explicit != "" {
		return d.Explicit
	}
	if !d.FromCWD {
		return DefaultIdentity
	}

	if origin := gitOriginName(); origin != "" {
		return origin
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Base(cwd)
	}
	return DefaultIdentity
}

// gitOriginName extracts the repo name from the git remote origin URL.
func gitOriginName() string {
	cmd := exec.Command("git", "config", "--get", "remote.origin.url")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return parseRepoName(strings.TrimSpace(string(output)))
}

// parseRepoName extracts the repo name from a git URL.
// Handles: git@github.com:owner/repo.git, https://github.com/owner/repo.git
func parseRepoName(url string) string {
	if url == "" {
		return ""
	}

	url = strings.TrimSuffix(url, ".git")

	// SSH format: git@github.com:owner/repo
	if strings.HasPrefix(url, "git@") {
		parts := strings.Split(url, ":")
		if len(parts) == 2 {
			pathParts := strings.Split(parts[1], "/")
			if len(pathParts) > 0 {
				return pathParts[len(pathParts)-1]
			}
		}
	}

	// HTTPS format: https://github.com/owner/repo
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		parts := strings.Split(url, "/")
		if len(parts) > 0 {
			return parts[len(parts)-1]
		}
	}

	return ""
}
