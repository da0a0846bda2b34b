package docker

import (
	"context"
	"log/slog"
	"time"

	"github.com/emperorhan/node-watchdog/internal/domain/model"
	"github.com/emperorhan/node-watchdog/internal/node"
	"github.com/emperorhan/node-watchdog/internal/node/logscan"
)

const DefaultTailLines = 5000

type SourceConfig struct {
	// TailLines bounds the main window by line count.
	TailLines int
	// Window, when positive, bounds the main window by age instead.
	Window time.Duration
	Now    func() time.Time
}

// Source implements node.SignalSource over container output.
type Source struct {
	reader  *LogReader
	scanner *logscan.Scanner
	cfg     SourceConfig
	logger  *slog.Logger

	// Output after the last session marker seen by Observe. Used when the
	// marker had no timestamp to bound a Since query.
	sessionID   string
	sessionTail []logscan.Line
}

var _ node.SignalSource = (*Source)(nil)

func NewSource(reader *LogReader, scanner *logscan.Scanner, cfg SourceConfig, logger *slog.Logger) *Source {
	if cfg.TailLines <= 0 {
		cfg.TailLines = DefaultTailLines
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Source{
		reader:  reader,
		scanner: scanner,
		cfg:     cfg,
		logger:  logger.With("component", "signal_source", "container", reader.Container()),
	}
}

func (s *Source) Observe(ctx context.Context) (node.Observation, error) {
	var (
		lines []logscan.Line
		err   error
	)
	if s.cfg.Window > 0 {
		lines, err = s.reader.Since(ctx, s.cfg.Now().Add(-s.cfg.Window))
	} else {
		lines, err = s.reader.Tail(ctx, s.cfg.TailLines)
	}
	if err != nil {
		return node.Observation{}, err
	}

	res := s.scanner.Scan(lines)
	obs := node.Observation{
		SyncedHeight:    res.SyncedHeight,
		HasSyncedHeight: res.HasSyncedHeight,
		SyncState:       res.SyncState,
	}

	s.sessionID, s.sessionTail = "", nil
	if res.Session != nil {
		session := res.Session.Session
		obs.Session = &session
		s.sessionID = session.ID
		s.sessionTail = append([]logscan.Line(nil), lines[res.Session.Index:]...)
	}

	s.logger.Debug("observed node output",
		"lines", len(lines),
		"synced_height", res.SyncedHeight,
		"has_synced_height", res.HasSyncedHeight,
		"sync_state", res.SyncState,
		"session", s.sessionID,
	)
	return obs, nil
}

func (s *Source) ProducedBlocksSince(ctx context.Context, session model.Session) (bool, error) {
	if session.HasStart() {
		lines, err := s.reader.Since(ctx, session.StartedAt)
		if err != nil {
			return false, err
		}
		return s.scanner.ProducedBlocks(lines), nil
	}
	if session.ID != "" && session.ID == s.sessionID {
		return s.scanner.ProducedBlocks(s.sessionTail), nil
	}
	return false, nil
}
