package domain

import (
	"fmt"
	"strings"
)

// FetchPolicy decides what happens to the run when one tag cannot be fetched
type FetchPolicy string

const (
	// FetchFailFast aborts the run on the first failed tag
	FetchFailFast FetchPolicy = "fail-fast"
	// FetchBestEffort logs failed tags and continues with the rest
	FetchBestEffort FetchPolicy = "best-effort"
)

// ParseFetchPolicy parses a policy name, case-insensitively
func ParseFetchPolicy(s string) (FetchPolicy, error) {
	switch FetchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case FetchFailFast, "":
		return FetchFailFast, nil
	case FetchBestEffort:
		return FetchBestEffort, nil
	}
	return "", fmt.Errorf("unknown fetch policy %q (use %s or %s)", s, FetchFailFast, FetchBestEffort)
}

// CommonOptions contains run-wide switches shared by the pipeline stages.
type CommonOptions struct {
	Verbose  bool
	DryRun   bool
	Progress bool
}
