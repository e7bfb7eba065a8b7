package link

import (
	"go.uber.org/zap/zapcore"

	"github.com/goldsprite/gdengine/internal/core/event"
)

// logCore forwards log entries to the bus as LogLine events so attached
// editors see the engine console.
type logCore struct {
	zapcore.LevelEnabler
	bus *event.Bus
	src string
}

// NewLogCore returns a core to tee next to the console core.
func NewLogCore(bus *event.Bus, level zapcore.LevelEnabler) zapcore.Core {
	return &logCore{LevelEnabler: level, bus: bus}
}

func (c *logCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	if src, ok := srcOf(fields); ok {
		clone.src = src
	}
	return &clone
}

func (c *logCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *logCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	src := c.src
	if s, ok := srcOf(fields); ok {
		src = s
	}
	// Link's own traffic would echo back to every editor.
	if src == "Link" {
		return nil
	}
	event.Emit(c.bus, event.LogLine{Level: ent.Level.String(), Src: src, Msg: ent.Message})
	return nil
}

func (c *logCore) Sync() error { return nil }

func srcOf(fields []zapcore.Field) (string, bool) {
	for _, f := range fields {
		if f.Key == "src" && f.Type == zapcore.StringType {
			return f.String, true
		}
	}
	return "", false
}
