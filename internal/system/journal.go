package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/goldsprite/gdengine/internal/core/system"
	"github.com/goldsprite/gdengine/internal/persist"
	"github.com/goldsprite/gdengine/internal/scripting"
)

// RunWriter stores journal rows. *persist.RunRepo implements it.
type RunWriter interface {
	InsertBatch(ctx context.Context, rows []persist.RunRow) error
}

// JournalSystem drains the host's run records every interval frames and
// writes them to the store. Phase 5 (Persist).
type JournalSystem struct {
	host      *scripting.Host
	repo      RunWriter
	log       *zap.Logger
	interval  int
	tickCount int
	pending   []persist.RunRow
}

func NewJournalSystem(host *scripting.Host, repo RunWriter, log *zap.Logger, intervalTicks int) *JournalSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &JournalSystem{host: host, repo: repo, log: log, interval: intervalTicks}
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ time.Duration) {
	s.collect()
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.write()
}

// Flush writes everything collected so far. Called on shutdown after the
// host has stopped.
func (s *JournalSystem) Flush() {
	s.collect()
	s.write()
}

// Pending returns the number of rows waiting for the next write.
func (s *JournalSystem) Pending() int { return len(s.pending) }

func (s *JournalSystem) collect() {
	for _, r := range s.host.DrainRecords() {
		s.pending = append(s.pending, persist.RunRow{
			RunID:      r.RunID,
			Project:    r.Project,
			Entry:      r.Entry,
			Language:   r.Language,
			Digest:     r.Digest,
			State:      r.State.String(),
			Diagnostic: r.Diagnostic,
			At:         r.At,
		})
	}
}

func (s *JournalSystem) write() {
	if len(s.pending) == 0 {
		return
	}
	if s.repo == nil {
		for _, r := range s.pending {
			s.log.Debug("script run", zap.String("src", "Journal"),
				zap.String("run", r.RunID), zap.String("state", r.State))
		}
		s.pending = s.pending[:0]
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.repo.InsertBatch(ctx, s.pending); err != nil {
		// Rows stay pending and are retried on the next write.
		s.log.Error("journal write failed", zap.String("src", "Journal"),
			zap.Int("rows", len(s.pending)), zap.Error(err))
		return
	}
	s.pending = s.pending[:0]
}
