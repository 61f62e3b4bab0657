package stream

// latestSlot buffers at most one wire message. Put replaces whatever is
// buffered, Take consumes it. Backed by a capacity-1 channel so both
// operations stay non-blocking; the receive loop is the only writer.
type latestSlot struct {
	ch chan [][]byte
}

func newLatestSlot() *latestSlot {
	return &latestSlot{ch: make(chan [][]byte, 1)}
}

// Put stores msg, discarding any unconsumed previous message. Reports
// whether a previous message was discarded.
func (s *latestSlot) Put(msg [][]byte) bool {
	dropped := false
	for {
		select {
		case s.ch <- msg:
			return dropped
		default:
		}
		select {
		case <-s.ch:
			dropped = true
		default:
		}
	}
}

// Take removes and returns the buffered message, if any.
func (s *latestSlot) Take() ([][]byte, bool) {
	select {
	case msg := <-s.ch:
		return msg, true
	default:
		return nil, false
	}
}
