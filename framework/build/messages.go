package build

import (
	"github.com/km-arc/go-extend/framework/logging"
	"github.com/km-arc/go-extend/framework/spi"
)

// messageLog accumulates every message of a build. It never drops or
// rewrites an entry.
type messageLog struct {
	items  []spi.Message
	logger logging.Logger
}

func (l *messageLog) add(m spi.Message) {
	l.items = append(l.items, m)

	kv := []any{"phase", m.Phase, "extension", m.Extension, "callback", m.Callback}
	if !m.Source.IsZero() {
		kv = append(kv, "source", m.Source.String())
	}
	switch m.Severity {
	case spi.SevError:
		l.logger.Error(m.Text, kv...)
	case spi.SevWarning:
		l.logger.Warn(m.Text, kv...)
	default:
		l.logger.Info(m.Text, kv...)
	}
}

func (l *messageLog) len() int { return len(l.items) }

// count returns how many messages of severity sev were recorded from index on.
func (l *messageLog) count(from int, sev spi.Severity) int {
	n := 0
	for _, m := range l.items[from:] {
		if m.Severity == sev {
			n++
		}
	}
	return n
}

func (l *messageLog) snapshot() []spi.Message {
	out := make([]spi.Message, len(l.items))
	copy(out, l.items)
	return out
}

// bind returns a Messages sink that stamps entries with their origin.
func (l *messageLog) bind(phase spi.Phase, extension, callback string) *boundMessages {
	return &boundMessages{log: l, phase: phase, extension: extension, callback: callback}
}

type boundMessages struct {
	log       *messageLog
	phase     spi.Phase
	extension string
	callback  string
	closed    bool
}

// Close ends the sink's callback; later records are dropped.
func (b *boundMessages) Close() { b.closed = true }

func (b *boundMessages) record(sev spi.Severity, text string, src []spi.Source) {
	if b.closed {
		b.log.logger.Warn("message dropped: sink used after its callback returned",
			"phase", b.phase, "extension", b.extension, "callback", b.callback, "severity", sev, "text", text)
		return
	}
	m := spi.Message{
		Text:      text,
		Severity:  sev,
		Phase:     b.phase,
		Extension: b.extension,
		Callback:  b.callback,
	}
	if len(src) > 0 {
		m.Source = src[0]
	}
	b.log.add(m)
}

func (b *boundMessages) Info(text string, src ...spi.Source)  { b.record(spi.SevInfo, text, src) }
func (b *boundMessages) Warn(text string, src ...spi.Source)  { b.record(spi.SevWarning, text, src) }
func (b *boundMessages) Error(text string, src ...spi.Source) { b.record(spi.SevError, text, src) }

func (b *boundMessages) Fail(err error, src ...spi.Source) {
	if err == nil {
		return
	}
	b.record(spi.SevError, err.Error(), src)
}
