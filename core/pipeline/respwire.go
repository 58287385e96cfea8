package pipeline

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/searchktools/fast-gateway/core/http"
)

// Cached responses are stored as a protobuf wire message so any tier,
// including the shared HTTP tier, can carry them opaquely:
//
//	message CachedResponse {
//	  int32  status        = 1;
//	  repeated string header_name  = 2;  // parallel with header_value
//	  repeated string header_value = 3;
//	  bytes  body          = 4;
//	}
const (
	respFieldStatus      = 1
	respFieldHeaderName  = 2
	respFieldHeaderValue = 3
	respFieldBody        = 4
)

var errBadCachedResponse = errors.New("malformed cached response")

func encodeResponse(resp *http.Response) []byte {
	b := protowire.AppendTag(nil, respFieldStatus, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(resp.Status))
	for name, value := range resp.Headers {
		b = protowire.AppendTag(b, respFieldHeaderName, protowire.BytesType)
		b = protowire.AppendString(b, name)
		b = protowire.AppendTag(b, respFieldHeaderValue, protowire.BytesType)
		b = protowire.AppendString(b, value)
	}
	if len(resp.Body) > 0 {
		b = protowire.AppendTag(b, respFieldBody, protowire.BytesType)
		b = protowire.AppendBytes(b, resp.Body)
	}
	return b
}

func decodeResponse(data []byte) (*http.Response, error) {
	resp := &http.Response{}
	var names, values []string
	seenStatus := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, errBadCachedResponse
		}
		data = data[n:]

		switch {
		case num == respFieldStatus && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, errBadCachedResponse
			}
			resp.Status = int(v)
			seenStatus = true
			data = data[n:]
		case num == respFieldHeaderName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, errBadCachedResponse
			}
			names = append(names, v)
			data = data[n:]
		case num == respFieldHeaderValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, errBadCachedResponse
			}
			values = append(values, v)
			data = data[n:]
		case num == respFieldBody && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, errBadCachedResponse
			}
			resp.Body = append([]byte(nil), v...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, errBadCachedResponse
			}
			data = data[n:]
		}
	}

	if !seenStatus || len(names) != len(values) {
		return nil, errBadCachedResponse
	}
	for i, name := range names {
		resp.SetHeader(name, values[i])
	}
	return resp, nil
}
