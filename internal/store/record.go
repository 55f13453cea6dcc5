package store

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/omochice/linechat/internal/client"
)

const (
	fieldServer protowire.Number = 1
	fieldName   protowire.Number = 2
)

// marshalConfig encodes cfg as a protobuf wire-format record.
func marshalConfig(cfg client.ConnectionConfig) []byte {
	b := make([]byte, 0, len(cfg.Server)+len(cfg.Name)+4)
	b = protowire.AppendTag(b, fieldServer, protowire.BytesType)
	b = protowire.AppendString(b, cfg.Server)
	b = protowire.AppendTag(b, fieldName, protowire.BytesType)
	b = protowire.AppendString(b, cfg.Name)
	return b
}

// unmarshalConfig decodes a record written by marshalConfig.
// Unknown fields are skipped.
func unmarshalConfig(b []byte) (client.ConnectionConfig, error) {
	var cfg client.ConnectionConfig
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return cfg, fmt.Errorf("record tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldServer && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return cfg, fmt.Errorf("record server: %w", protowire.ParseError(n))
			}
			cfg.Server = v
			b = b[n:]
		case num == fieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return cfg, fmt.Errorf("record name: %w", protowire.ParseError(n))
			}
			cfg.Name = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return cfg, fmt.Errorf("record field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return cfg, nil
}
