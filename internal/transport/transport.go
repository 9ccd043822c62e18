// SPDX-License-Identifier: MIT
/*
Package transport moves per-frame feature snapshots out of the process.
Transports are fan-out sinks: the analysis loop calls Send once per frame
and never blocks on a slow consumer.
*/
package transport

// Transport is a sink for feature snapshots. Implementations must be safe
// for concurrent use and must not block the caller.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans one Send out to several transports. A failing sink does not
// stop delivery to the others; the first error is returned.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
