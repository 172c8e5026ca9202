package reconcile

import (
	"bytes"
	"io"

	"github.com/ugorji/go/codec"

	"github.com/dreamware/reconcile/internal/diff"
)

// maxDatagramSize is the largest payload a peer will accept in one UDP
// datagram; messages are batched up to just under this and flushed into a
// new datagram rather than split mid-message.
const maxDatagramSize = 65507

var mpHandle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	return h
}()

type messageKind uint8

const (
	kindComparison messageKind = iota
	kindUpdate
)

type boundWire[K any] struct {
	Kind uint8
	Key  K
}

type segmentWire[K any] struct {
	Start boundWire[K]
	End   boundWire[K]
	Hash  uint64
	Size  int
}

type updateWire[K any, V any] struct {
	Key   K
	Value TimedValue[V]
}

// messageWire is the tagged union exchanged over UDP: a comparison segment
// or a key/value update, self-delimited by msgpack so a decoder can read as
// many as fit in a datagram just by decoding until io.EOF.
type messageWire[K any, V any] struct {
	Kind    messageKind
	Segment segmentWire[K] `codec:",omitempty"`
	Update  updateWire[K, V] `codec:",omitempty"`
}

func toBoundWire[K any](b diff.Bound[K]) boundWire[K] {
	return boundWire[K]{Kind: uint8(b.Kind), Key: b.Key}
}

func fromBoundWire[K any](w boundWire[K]) diff.Bound[K] {
	return diff.Bound[K]{Kind: diff.BoundKind(w.Kind), Key: w.Key}
}

func encodeOne[K any, V any](m messageWire[K, V]) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, mpHandle)
	if err := enc.Encode(&m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildDatagrams encodes every segment and update into msgpack values and
// packs them into as few datagrams as possible, each under maxDatagramSize,
// never splitting a single encoded message across two datagrams.
func buildDatagrams[K any, V any](segments []diff.HashSegment[K], updates []Update[K, V]) ([][]byte, error) {
	var blobs [][]byte
	for _, s := range segments {
		b, err := encodeOne(messageWire[K, V]{
			Kind: kindComparison,
			Segment: segmentWire[K]{
				Start: toBoundWire(s.Range.Start),
				End:   toBoundWire(s.Range.End),
				Hash:  s.Hash,
				Size:  s.Size,
			},
		})
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, b)
	}
	for _, u := range updates {
		b, err := encodeOne(messageWire[K, V]{
			Kind:   kindUpdate,
			Update: updateWire[K, V]{Key: u.Key, Value: u.Value},
		})
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, b)
	}

	var datagrams [][]byte
	var cur bytes.Buffer
	for _, b := range blobs {
		if cur.Len() > 0 && cur.Len()+len(b) > maxDatagramSize {
			datagrams = append(datagrams, append([]byte(nil), cur.Bytes()...))
			cur.Reset()
		}
		cur.Write(b)
	}
	if cur.Len() > 0 {
		datagrams = append(datagrams, append([]byte(nil), cur.Bytes()...))
	}
	return datagrams, nil
}

// decodeMessages reads every self-delimited message out of one datagram,
// stopping cleanly at io.EOF the way the reference implementation's bincode
// deserializer loop stops at UnexpectedEof.
func decodeMessages[K any, V any](data []byte) (segments []diff.HashSegment[K], updates []Update[K, V], err error) {
	dec := codec.NewDecoderBytes(data, mpHandle)
	for {
		var m messageWire[K, V]
		if decErr := dec.Decode(&m); decErr != nil {
			if decErr == io.EOF {
				break
			}
			return segments, updates, decErr
		}
		switch m.Kind {
		case kindComparison:
			segments = append(segments, diff.HashSegment[K]{
				Range: diff.Range[K]{
					Start: fromBoundWire(m.Segment.Start),
					End:   fromBoundWire(m.Segment.End),
				},
				Hash: m.Segment.Hash,
				Size: m.Segment.Size,
			})
		case kindUpdate:
			updates = append(updates, Update[K, V]{Key: m.Update.Key, Value: m.Update.Value})
		}
	}
	return segments, updates, nil
}
