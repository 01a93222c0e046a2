package marionette

import "sync/atomic"

// SessionMetrics contains atomic metrics for a Session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// CommandCount indicates the number of commands issued.
	CommandCount atomic.Uint64
	// CommandErrCount indicates the number of commands that returned an error.
	CommandErrCount atomic.Uint64
	// ReadTimeoutCount indicates the number of reads that timed out.
	ReadTimeoutCount atomic.Uint64
	// LineRecvCount indicates the number of lines received, streaming included.
	LineRecvCount atomic.Uint64
	// LineSendCount indicates the number of lines written, handshake included.
	LineSendCount atomic.Uint64
	// FaultCount indicates the number of transport faults that closed the session.
	FaultCount atomic.Uint64
	// InflightGauge is 1 while a command is in flight.
	InflightGauge atomic.Int64
	// AcquireRetryCount indicates the number of failed open attempts that were retried.
	AcquireRetryCount atomic.Uint32
}

func (m *SessionMetrics) incCommandCount()     { m.CommandCount.Add(1) }
func (m *SessionMetrics) incCommandErrCount()  { m.CommandErrCount.Add(1) }
func (m *SessionMetrics) incReadTimeoutCount() { m.ReadTimeoutCount.Add(1) }
func (m *SessionMetrics) incLineRecvCount()    { m.LineRecvCount.Add(1) }
func (m *SessionMetrics) incLineSendCount()    { m.LineSendCount.Add(1) }
func (m *SessionMetrics) incFaultCount()       { m.FaultCount.Add(1) }
func (m *SessionMetrics) incInflight()         { m.InflightGauge.Add(1) }
func (m *SessionMetrics) decInflight()         { m.InflightGauge.Add(-1) }
func (m *SessionMetrics) incAcquireRetry()     { m.AcquireRetryCount.Add(1) }
