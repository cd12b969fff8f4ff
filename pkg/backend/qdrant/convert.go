// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package qdrant

import (
	"fmt"

	qc "github.com/qdrant/go-client/qdrant"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
)

func toQdrantDistance(d backend.Distance) qc.Distance {
	switch d {
	case backend.DistanceDot:
		return qc.Distance_Dot
	case backend.DistanceEuclidean:
		return qc.Distance_Euclid
	default:
		return qc.Distance_Cosine
	}
}

func fromQdrantDistance(d qc.Distance) backend.Distance {
	switch d {
	case qc.Distance_Dot:
		return backend.DistanceDot
	case qc.Distance_Euclid:
		return backend.DistanceEuclidean
	default:
		return backend.DistanceCosine
	}
}

// toQuantizationConfig builds the quantization tier original_source's
// _ensure_collection_exists chooses from vector size: binary for large
// vectors (32x compression), scalar int8 for medium vectors (4x
// compression), none for small vectors where accuracy matters more than
// footprint.
func toQuantizationConfig(q backend.Quantization) *qc.QuantizationConfig {
	switch q {
	case backend.QuantizationBinary:
		return qc.NewQuantizationBinary(&qc.BinaryQuantization{
			Binary: &qc.BinaryQuantizationConfig{
				AlwaysRam: ptrBool(true),
			},
		})
	case backend.QuantizationScalar:
		return qc.NewQuantizationScalar(&qc.ScalarQuantization{
			Scalar: &qc.ScalarQuantizationConfig{
				Type:      qc.QuantizationType_Int8,
				AlwaysRam: ptrBool(true),
			},
		})
	default:
		return nil
	}
}

func idFromString(id string) *qc.PointId {
	return qc.NewID(id)
}

func idToString(id *qc.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func valuesToMap(payload map[string]*qc.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qc.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.Kind.(type) {
	case *qc.Value_NullValue:
		return nil
	case *qc.Value_BoolValue:
		return kind.BoolValue
	case *qc.Value_IntegerValue:
		return kind.IntegerValue
	case *qc.Value_DoubleValue:
		return kind.DoubleValue
	case *qc.Value_StringValue:
		return kind.StringValue
	case *qc.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = valueToAny(item)
		}
		return out
	case *qc.Value_StructValue:
		fields := kind.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for k, item := range fields {
			out[k] = valueToAny(item)
		}
		return out
	default:
		return nil
	}
}

func firstVector(vectors *qc.VectorsOutput) []float32 {
	if vectors == nil {
		return nil
	}
	if v := vectors.GetVector(); v != nil {
		return v.GetData()
	}
	if m := vectors.GetVectors(); m != nil {
		for _, v := range m.GetVectors() {
			return v.GetData()
		}
	}
	return nil
}

func pointsSelectorFromIDs(ids []*qc.PointId) *qc.PointsSelector {
	return &qc.PointsSelector{
		PointsSelectorOneOf: &qc.PointsSelector_Points{
			Points: &qc.PointsIdsList{Ids: ids},
		},
	}
}

func ptrUint64(v uint64) *uint64  { return &v }
func ptrFloat32(v float32) *float32 { return &v }
func ptrString(v string) *string  { return &v }
func ptrBool(v bool) *bool        { return &v }
