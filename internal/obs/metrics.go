package obs

import "sync/atomic"

// Metrics collects pipeline counters. All counters are monotonic and safe
// for concurrent use by the subscriber and every worker.
type Metrics struct {
	received    uint64
	decoded     uint64
	parsed      uint64
	unsupported uint64
	filtered    uint64
	persisted   uint64

	decodeErrors    uint64
	parseErrors     uint64
	timestampErrors uint64
	persistErrors   uint64
}

// Snapshot is a point-in-time view of the pipeline counters.
type Snapshot struct {
	Received    uint64
	Decoded     uint64
	Parsed      uint64
	Unsupported uint64
	Filtered    uint64
	Persisted   uint64

	DecodeErrors    uint64
	ParseErrors     uint64
	TimestampErrors uint64
	PersistErrors   uint64
}

// Errors sums every error counter.
func (s Snapshot) Errors() uint64 {
	return s.DecodeErrors + s.ParseErrors + s.TimestampErrors + s.PersistErrors
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncReceived records a frame taken off the feed socket.
func (m *Metrics) IncReceived() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.received, 1)
}

// IncDecoded records a successfully inflated frame.
func (m *Metrics) IncDecoded() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.decoded, 1)
}

// IncParsed records a payload parsed into a known envelope.
func (m *Metrics) IncParsed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.parsed, 1)
}

// IncUnsupported records a payload no envelope variant claims.
func (m *Metrics) IncUnsupported() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.unsupported, 1)
}

// IncFiltered records an intentional skip, not an error.
func (m *Metrics) IncFiltered() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.filtered, 1)
}

// IncPersisted records a committed message.
func (m *Metrics) IncPersisted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.persisted, 1)
}

// IncDecodeError records a corrupt or unreadable frame.
func (m *Metrics) IncDecodeError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.decodeErrors, 1)
}

// IncParseError records an unparseable payload.
func (m *Metrics) IncParseError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.parseErrors, 1)
}

// IncTimestampError records a message dropped for a malformed timestamp.
func (m *Metrics) IncTimestampError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.timestampErrors, 1)
}

// IncPersistError records a rolled-back store transaction.
func (m *Metrics) IncPersistError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.persistErrors, 1)
}

// Snapshot returns a copy of the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Received:    atomic.LoadUint64(&m.received),
		Decoded:     atomic.LoadUint64(&m.decoded),
		Parsed:      atomic.LoadUint64(&m.parsed),
		Unsupported: atomic.LoadUint64(&m.unsupported),
		Filtered:    atomic.LoadUint64(&m.filtered),
		Persisted:   atomic.LoadUint64(&m.persisted),

		DecodeErrors:    atomic.LoadUint64(&m.decodeErrors),
		ParseErrors:     atomic.LoadUint64(&m.parseErrors),
		TimestampErrors: atomic.LoadUint64(&m.timestampErrors),
		PersistErrors:   atomic.LoadUint64(&m.persistErrors),
	}
}
