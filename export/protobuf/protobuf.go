// Package protobuf exports denormalized result trees as protobuf Struct
// values, for transports that carry results in protobuf envelopes.
package protobuf

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Export converts a denormalized result tree into a structpb.Struct.
func Export(result map[string]any) (*structpb.Struct, error) {
	fields := make(map[string]*structpb.Value, len(result))
	for k, v := range result {
		pv, err := value(v)
		if err != nil {
			return nil, fmt.Errorf("export: field %q: %w", k, err)
		}
		fields[k] = pv
	}
	return &structpb.Struct{Fields: fields}, nil
}

func value(v any) (*structpb.Value, error) {
	switch t := v.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case map[string]any:
		s, err := Export(t)
		if err != nil {
			return nil, err
		}
		return structpb.NewStructValue(s), nil
	case []any:
		items := make([]*structpb.Value, len(t))
		for i, item := range t {
			pv, err := value(item)
			if err != nil {
				return nil, err
			}
			items[i] = pv
		}
		return structpb.NewListValue(&structpb.ListValue{Values: items}), nil
	default:
		return structpb.NewValue(v)
	}
}
