package events

import "github.com/vmihailenco/msgpack/v5"

// EncodeBundle serializes a batch of events for a single EventBundle wire
// payload. msgpack is used here (rather than internal/wire's fixed
// hand-packed codec) because the event catalogue is open-ended and
// frequently extended, unlike the small, stable handshake/command/
// snapshot message set.
func EncodeBundle(evts []GameEvent) ([]byte, error) {
	return msgpack.Marshal(evts)
}

func DecodeBundle(data []byte) ([]GameEvent, error) {
	var evts []GameEvent
	if err := msgpack.Unmarshal(data, &evts); err != nil {
		return nil, err
	}
	return evts, nil
}
