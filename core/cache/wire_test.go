package cache

import (
	"bytes"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestEntryWireRoundTrip(t *testing.T) {
	created := time.Unix(1712000000, 123456789)
	in := &Entry{
		Key:       []byte{0x00, 0x01, 0xFF},
		Value:     []byte("payload with\x00binary"),
		CreatedAt: created,
		TTL:       90 * time.Second,
		Tags:      []string{"users", "tenant:42"},
	}

	out, err := UnmarshalEntry(MarshalEntry(in))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Key, in.Key) {
		t.Errorf("key = %x, want %x", out.Key, in.Key)
	}
	if !bytes.Equal(out.Value, in.Value) {
		t.Errorf("value mismatch")
	}
	if !out.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", out.CreatedAt, created)
	}
	if out.TTL != in.TTL {
		t.Errorf("ttl = %v, want %v", out.TTL, in.TTL)
	}
	if len(out.Tags) != 2 || out.Tags[0] != "users" || out.Tags[1] != "tenant:42" {
		t.Errorf("tags = %v", out.Tags)
	}
}

func TestUnmarshalEntrySkipsUnknownFields(t *testing.T) {
	b := MarshalEntry(&Entry{Key: []byte("k"), Value: []byte("v"), CreatedAt: time.Now()})
	// Append an unknown field a future writer might add.
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	out, err := UnmarshalEntry(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Key, []byte("k")) {
		t.Errorf("key = %q", out.Key)
	}
}

func TestUnmarshalEntryRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalEntry([]byte{0xFF, 0xFF, 0xFF}); err == nil {
		t.Error("garbage accepted")
	}
	// A structurally valid message without a key field is still invalid.
	b := protowire.AppendTag(nil, entryFieldValue, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("v"))
	if _, err := UnmarshalEntry(b); err == nil {
		t.Error("entry without key accepted")
	}
}
