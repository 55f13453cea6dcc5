package store

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/omochice/linechat/internal/client"
)

func TestRecord_RoundTrip(t *testing.T) {
	cfg := client.ConnectionConfig{Server: "ws://example.com/chat", Name: "alice"}
	got, err := unmarshalConfig(marshalConfig(cfg))
	if err != nil {
		t.Fatalf("unmarshalConfig() error: %v", err)
	}
	if got != cfg {
		t.Errorf("got %+v, want %+v", got, cfg)
	}
}

func TestRecord_SkipsUnknownFields(t *testing.T) {
	b := marshalConfig(client.ConnectionConfig{Server: "a", Name: "b"})
	b = protowire.AppendTag(b, 7, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = protowire.AppendTag(b, 8, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	got, err := unmarshalConfig(b)
	if err != nil {
		t.Fatalf("unmarshalConfig() error: %v", err)
	}
	if got.Server != "a" || got.Name != "b" {
		t.Errorf("got %+v", got)
	}
}

func TestRecord_MissingFieldsAreEmpty(t *testing.T) {
	b := protowire.AppendTag(nil, fieldName, protowire.BytesType)
	b = protowire.AppendString(b, "only-name")

	got, err := unmarshalConfig(b)
	if err != nil {
		t.Fatalf("unmarshalConfig() error: %v", err)
	}
	if got.Server != "" || got.Name != "only-name" {
		t.Errorf("got %+v", got)
	}
}

func TestRecord_Truncated(t *testing.T) {
	b := marshalConfig(client.ConnectionConfig{Server: "example.com", Name: "alice"})
	if _, err := unmarshalConfig(b[:len(b)-2]); err == nil {
		t.Error("expected error for truncated record")
	}
}

func TestConnKey_Order(t *testing.T) {
	a, b := connKey(1), connKey(256)
	if string(a) >= string(b) {
		t.Errorf("connKey(1) = %x sorts after connKey(256) = %x", a, b)
	}
	if string(b) >= string(connEnd) {
		t.Error("conn keys must sort before connEnd")
	}
}
