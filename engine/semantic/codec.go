package semantic

import (
	"fmt"
	"math"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/semcache/semcache/engine/domain"
)

// encodeMetadata converts caller metadata into a nested Qdrant struct
// value. A nil mapping encodes as an empty struct so every record carries
// an explicit (possibly empty) metadata object.
func encodeMetadata(meta domain.Metadata) *pb.Value {
	fields := make(map[string]*pb.Value, len(meta))
	for k, val := range meta {
		fields[k] = encodeValue(val)
	}
	return &pb.Value{Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: fields}}}
}

func encodeValue(val any) *pb.Value {
	switch tv := val.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{NullValue: pb.NullValue_NULL_VALUE}}
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case float32:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: float64(tv)}}
	case domain.Metadata:
		return encodeMetadata(tv)
	case map[string]any:
		return encodeMetadata(domain.Metadata(tv))
	case []any:
		vals := make([]*pb.Value, len(tv))
		for i, item := range tv {
			vals[i] = encodeValue(item)
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: vals}}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

// decodePayload pulls the text and metadata back out of a point payload.
// Metadata is never nil on the way out.
func decodePayload(payload map[string]*pb.Value) (string, domain.Metadata) {
	text := payload[payloadText].GetStringValue()
	meta := domain.Metadata{}
	if mv, ok := payload[payloadMeta]; ok {
		for k, val := range mv.GetStructValue().GetFields() {
			meta[k] = decodeValue(val)
		}
	}
	return text, meta
}

func decodeValue(v *pb.Value) any {
	switch kind := v.GetKind().(type) {
	case *pb.Value_NullValue:
		return nil
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_StructValue:
		out := map[string]any{}
		for k, val := range kind.StructValue.GetFields() {
			out[k] = decodeValue(val)
		}
		return out
	case *pb.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for i, val := range items {
			out[i] = decodeValue(val)
		}
		return out
	default:
		return nil
	}
}

// buildFilter translates the metadata filter (equality on metadata keys)
// and the document filter ({"contains": <substring>} against the text)
// into a single must-AND Qdrant filter. Nil filters yield a nil pb.Filter.
func buildFilter(where, whereDocument domain.Metadata) (*pb.Filter, error) {
	var must []*pb.Condition
	for k, val := range where {
		cond, err := metadataCondition(k, val)
		if err != nil {
			return nil, err
		}
		must = append(must, cond)
	}
	for k, val := range whereDocument {
		if k != "contains" {
			return nil, domain.Validationf("search", "unsupported document filter operator %q", k)
		}
		s, ok := val.(string)
		if !ok {
			return nil, domain.Validationf("search", "document filter %q requires a string", k)
		}
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key:   payloadText,
					Match: &pb.Match{MatchValue: &pb.Match_Text{Text: s}},
				},
			},
		})
	}
	if len(must) == 0 {
		return nil, nil
	}
	return &pb.Filter{Must: must}, nil
}

// metadataCondition builds an equality condition on metadata.<key>.
// Non-integral numbers use a degenerate range since Qdrant has no
// floating-point match.
func metadataCondition(key string, val any) (*pb.Condition, error) {
	fieldKey := payloadMeta + "." + key
	var match *pb.Match
	switch tv := val.(type) {
	case string:
		match = &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: tv}}
	case bool:
		match = &pb.Match{MatchValue: &pb.Match_Boolean{Boolean: tv}}
	case int:
		match = &pb.Match{MatchValue: &pb.Match_Integer{Integer: int64(tv)}}
	case int64:
		match = &pb.Match{MatchValue: &pb.Match_Integer{Integer: tv}}
	case float64:
		if tv == math.Trunc(tv) {
			match = &pb.Match{MatchValue: &pb.Match_Integer{Integer: int64(tv)}}
		} else {
			return &pb.Condition{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key:   fieldKey,
						Range: &pb.Range{Gte: &tv, Lte: &tv},
					},
				},
			}, nil
		}
	default:
		return nil, domain.Validationf("search", "metadata filter %q has unsupported type %T", key, val)
	}
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{Key: fieldKey, Match: match},
		},
	}, nil
}
