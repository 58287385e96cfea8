package cache

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire format for entries crossing tier boundaries: a protobuf message
// encoded by hand with protowire, so both ends stay free of generated
// code while remaining readable by any protobuf tooling.
//
//	message Entry {
//	  bytes  key        = 1;
//	  bytes  value      = 2;
//	  int64  created_at = 3; // unix nanoseconds
//	  int64  ttl        = 4; // nanoseconds
//	  repeated string tags = 5;
//	}
const (
	entryFieldKey       protowire.Number = 1
	entryFieldValue     protowire.Number = 2
	entryFieldCreatedAt protowire.Number = 3
	entryFieldTTL       protowire.Number = 4
	entryFieldTags      protowire.Number = 5
)

// MarshalEntry encodes e into the tier wire format.
func MarshalEntry(e *Entry) []byte {
	size := len(e.Key) + len(e.Value) + 64
	for _, t := range e.Tags {
		size += len(t) + 2
	}
	b := make([]byte, 0, size)

	b = protowire.AppendTag(b, entryFieldKey, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Key)
	b = protowire.AppendTag(b, entryFieldValue, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Value)
	b = protowire.AppendTag(b, entryFieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.CreatedAt.UnixNano()))
	b = protowire.AppendTag(b, entryFieldTTL, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.TTL))
	for _, t := range e.Tags {
		b = protowire.AppendTag(b, entryFieldTags, protowire.BytesType)
		b = protowire.AppendString(b, t)
	}
	return b
}

// UnmarshalEntry decodes the tier wire format. Unknown fields are
// skipped for forward compatibility. The returned entry owns its
// byte slices.
func UnmarshalEntry(data []byte) (*Entry, error) {
	e := &Entry{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("cache: bad entry tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == entryFieldKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("cache: bad entry key: %w", protowire.ParseError(n))
			}
			e.Key = cloneBytes(v)
			data = data[n:]
		case num == entryFieldValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("cache: bad entry value: %w", protowire.ParseError(n))
			}
			e.Value = cloneBytes(v)
			data = data[n:]
		case num == entryFieldCreatedAt && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("cache: bad entry created_at: %w", protowire.ParseError(n))
			}
			e.CreatedAt = time.Unix(0, int64(v))
			data = data[n:]
		case num == entryFieldTTL && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("cache: bad entry ttl: %w", protowire.ParseError(n))
			}
			e.TTL = time.Duration(v)
			data = data[n:]
		case num == entryFieldTags && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("cache: bad entry tag value: %w", protowire.ParseError(n))
			}
			e.Tags = append(e.Tags, v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("cache: bad entry field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if e.Key == nil {
		return nil, fmt.Errorf("cache: entry missing key field")
	}
	return e, nil
}
