package logscan

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emperorhan/node-watchdog/internal/domain/model"
)

// Line is one line of node output. At is zero when the line carried no
// runtime timestamp prefix.
type Line struct {
	At   time.Time
	Text string
}

// ParseLine splits off a leading RFC3339Nano timestamp as written by the
// container runtime when timestamps are requested.
func ParseLine(raw string) Line {
	raw = strings.TrimRight(raw, "\r")
	head, rest, found := strings.Cut(raw, " ")
	if found {
		if at, err := time.Parse(time.RFC3339Nano, head); err == nil {
			return Line{At: at, Text: rest}
		}
	}
	return Line{Text: raw}
}

// ParseLines splits a block of output into lines, skipping blank ones.
// Lines of any length are kept so later markers are never cut off.
func ParseLines(raw []byte) []Line {
	lines := make([]Line, 0, bytes.Count(raw, []byte{'\n'})+1)
	for len(raw) > 0 {
		var line []byte
		line, raw, _ = bytes.Cut(raw, []byte{'\n'})
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, ParseLine(string(line)))
	}
	return lines
}

// SessionMark is the last session marker and where it was found.
type SessionMark struct {
	Session model.Session
	Index   int
}

// Result is everything a window says about the node.
type Result struct {
	SyncedHeight    uint64
	HasSyncedHeight bool
	SyncState       model.SyncState
	Session         *SessionMark
}

type Scanner struct {
	profile      Profile
	syncedHeight *regexp.Regexp
	session      *regexp.Regexp
}

// NewDefaultScanner compiles DefaultProfile, which is known to be valid.
func NewDefaultScanner() *Scanner {
	s, err := DefaultProfile().Compile()
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Scanner) Profile() Profile { return s.profile }

func (s *Scanner) Scan(lines []Line) Result {
	height, ok := s.LatestSyncedHeight(lines)
	res := Result{
		SyncedHeight:    height,
		HasSyncedHeight: ok,
		SyncState:       s.SyncState(lines),
	}
	if mark, found := s.CurrentSession(lines); found {
		res.Session = &mark
	}
	return res
}

// LatestSyncedHeight returns the highest imported height in lines.
// Captures that overflow uint64 are ignored.
func (s *Scanner) LatestSyncedHeight(lines []Line) (uint64, bool) {
	var (
		best  uint64
		found bool
	)
	for _, line := range lines {
		m := s.syncedHeight.FindStringSubmatch(line.Text)
		if m == nil {
			continue
		}
		h, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		if !found || h > best {
			best, found = h, true
		}
	}
	return best, found
}

func (s *Scanner) SyncState(lines []Line) model.SyncState {
	lastEnter, lastExit := -1, -1
	for i, line := range lines {
		if strings.Contains(line.Text, s.profile.EnterMajorSync) {
			lastEnter = i
		}
		if strings.Contains(line.Text, s.profile.ExitMajorSync) {
			lastExit = i
		}
	}
	switch {
	case lastEnter < 0 && lastExit < 0:
		return model.SyncStateUnknown
	case lastEnter > lastExit:
		return model.SyncStateSyncing
	default:
		return model.SyncStateNotSyncing
	}
}

func (s *Scanner) CurrentSession(lines []Line) (SessionMark, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		m := s.session.FindStringSubmatch(lines[i].Text)
		if m == nil {
			continue
		}
		return SessionMark{
			Session: model.Session{ID: m[1], StartedAt: lines[i].At},
			Index:   i,
		}, true
	}
	return SessionMark{}, false
}

// ProducedBlocks reports whether lines hold both proposal markers.
func (s *Scanner) ProducedBlocks(lines []Line) bool {
	var prepared, sealed bool
	for _, line := range lines {
		if !prepared && strings.Contains(line.Text, s.profile.PreparedBlock) {
			prepared = true
		}
		if !sealed && strings.Contains(line.Text, s.profile.SealedBlock) {
			sealed = true
		}
		if prepared && sealed {
			return true
		}
	}
	return false
}
