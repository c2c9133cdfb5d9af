package filter

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, s string) Predicate {
	t.Helper()
	var p Predicate
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return p
}

func TestDecodeValueShapes(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{`{"field":"status","operator":"equals","value":"active"}`, Scalar{V: "active"}},
		{`{"field":"amount","operator":"gte","value":100}`, Scalar{V: 100.0}},
		{`{"field":"isActive","operator":"equals","value":true}`, Scalar{V: true}},
		{`{"field":"status","operator":"in","value":["a","b"]}`, List{Values: []any{"a", "b"}}},
		{`{"field":"amount","operator":"between","value":[1,5]}`, Range{Low: 1.0, High: 5.0}},
		{`{"field":"amount","operator":"between","value":[1]}`, NoValue{}},
		{`{"field":"amount","operator":"between","value":7}`, NoValue{}},
		{`{"field":"notes","operator":"isNull"}`, NoValue{}},
		{`{"field":"scheduledDate","operator":"today","value":"ignored"}`, NoValue{}},
		{`{"field":"status","operator":"equals","value":null}`, NoValue{}},
	}
	for _, tt := range tests {
		if got := decode(t, tt.in).Value; !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestEncodeKeepsWireShape(t *testing.T) {
	p := Predicate{Field: "amount", Op: OpBetween, Value: Range{Low: 1.0, High: 5.0}}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"field":"amount","operator":"between","value":[1,5]}` {
		t.Fatalf("unexpected encoding %s", b)
	}

	b, err = json.Marshal(Predicate{Field: "notes", Op: OpIsNull, Value: NoValue{}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"field":"notes","operator":"isNull"}` {
		t.Fatalf("unexpected encoding %s", b)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	var p Predicate
	if err := json.Unmarshal([]byte(`{"field":1}`), &p); err == nil {
		t.Fatal("expected error for non-string field")
	}
}

func TestStr(t *testing.T) {
	if s, ok := (Predicate{Value: Scalar{V: "x"}}).Str(); !ok || s != "x" {
		t.Fatal("string scalar not returned")
	}
	if _, ok := (Predicate{Value: Scalar{V: 1.0}}).Str(); ok {
		t.Fatal("number reported as string")
	}
	if _, ok := (Predicate{Value: List{}}).Str(); ok {
		t.Fatal("list reported as string")
	}
}
