// Package sink defines the result sink: the boundary through which the
// query executor delivers result chunks to its caller, and the
// in-memory implementation used by tests and by the CLI's query
// command.
package sink

import "github.com/harrison/tablecat/internal/reader"

// Sink receives streamed query results. WriteSome is called for every
// intermediate chunk; WriteAllAndFinish is called instead of
// WriteSome+Finish when the executor has the complete result in hand at
// once (the id-only short-circuit), and Finish is then not called.
// Otherwise a query that is not aborted by an error ends with exactly
// one Finish call, whether or not any chunk was written.
type Sink interface {
	WriteSome(chunk reader.Table) error
	WriteAllAndFinish(chunk reader.Table) error
	Finish() error
}

// Memory accumulates every chunk it receives, in order. It is the sink
// used by tests and by any caller that wants the whole result at once.
type Memory struct {
	Chunks   []reader.Table
	Finished bool
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// WriteSome implements Sink.
func (m *Memory) WriteSome(chunk reader.Table) error {
	m.Chunks = append(m.Chunks, chunk)
	return nil
}

// WriteAllAndFinish implements Sink.
func (m *Memory) WriteAllAndFinish(chunk reader.Table) error {
	m.Chunks = append(m.Chunks, chunk)
	m.Finished = true
	return nil
}

// Finish implements Sink.
func (m *Memory) Finish() error {
	m.Finished = true
	return nil
}
