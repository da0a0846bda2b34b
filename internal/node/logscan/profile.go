// Package logscan extracts node signals from textual node output.
//
// Matching rules:
//   - synced height: highest value captured in the window
//   - sync state: position of the last enter marker against the last exit marker
//   - session: last session marker wins
//   - production: a prepared marker and a sealed marker both present
package logscan

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile lists the markers a node family writes. Regex fields need exactly
// one capture group; the rest are plain substrings.
type Profile struct {
	SyncedHeight   string `yaml:"synced_height"`
	EnterMajorSync string `yaml:"enter_major_sync"`
	ExitMajorSync  string `yaml:"exit_major_sync"`
	Session        string `yaml:"session"`
	PreparedBlock  string `yaml:"prepared_block"`
	SealedBlock    string `yaml:"sealed_block"`
}

// DefaultProfile matches Substrate nodes such as Aleph Zero.
func DefaultProfile() Profile {
	return Profile{
		SyncedHeight:   `Imported #(\d+) \(0x`,
		EnterMajorSync: "Switched to major sync state",
		ExitMajorSync:  "No longer in major sync state",
		Session:        `Running session (\d+)`,
		PreparedBlock:  "Prepared block for proposing",
		SealedBlock:    "Pre-sealed block for proposal",
	}
}

// LoadProfile overlays the non-empty fields of a YAML file onto the default
// profile. An empty path returns the default.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if strings.TrimSpace(path) == "" {
		return profile, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read log profile: %w", err)
	}
	var overlay Profile
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return Profile{}, fmt.Errorf("parse log profile %s: %w", path, err)
	}

	if overlay.SyncedHeight != "" {
		profile.SyncedHeight = overlay.SyncedHeight
	}
	if overlay.EnterMajorSync != "" {
		profile.EnterMajorSync = overlay.EnterMajorSync
	}
	if overlay.ExitMajorSync != "" {
		profile.ExitMajorSync = overlay.ExitMajorSync
	}
	if overlay.Session != "" {
		profile.Session = overlay.Session
	}
	if overlay.PreparedBlock != "" {
		profile.PreparedBlock = overlay.PreparedBlock
	}
	if overlay.SealedBlock != "" {
		profile.SealedBlock = overlay.SealedBlock
	}
	return profile, nil
}

// Compile validates the profile and builds a Scanner from it.
func (p Profile) Compile() (*Scanner, error) {
	height, err := compileCapture("synced_height", p.SyncedHeight)
	if err != nil {
		return nil, err
	}
	session, err := compileCapture("session", p.Session)
	if err != nil {
		return nil, err
	}
	for name, marker := range map[string]string{
		"enter_major_sync": p.EnterMajorSync,
		"exit_major_sync":  p.ExitMajorSync,
		"prepared_block":   p.PreparedBlock,
		"sealed_block":     p.SealedBlock,
	} {
		if marker == "" {
			return nil, fmt.Errorf("log profile: %s is required", name)
		}
	}
	return &Scanner{
		profile:      p,
		syncedHeight: height,
		session:      session,
	}, nil
}

func compileCapture(name, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, fmt.Errorf("log profile: %s is required", name)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("log profile: compile %s: %w", name, err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("log profile: %s must have exactly one capture group, got %d", name, re.NumSubexp())
	}
	return re, nil
}
