// Package stream moves frame bundles between processes over ZeroMQ
// PUB/SUB with latest-frame-wins delivery: the publisher never waits for
// subscribers, and a subscriber only ever hands out the newest fully
// received frame, silently dropping backlog.
package stream

import "errors"

// StreamURI maps a logical stream name to its local transport address.
// Publisher and subscriber must resolve the same name to rendezvous.
func StreamURI(name string) (string, error) {
	if name == "" {
		return "", errors.New("stream name must not be empty")
	}
	return "ipc:///tmp/" + name, nil
}
