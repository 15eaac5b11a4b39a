package tree

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePreservesKeyOrder(t *testing.T) {
	v := MustParse(`{"zeta":1,"alpha":{"y":true,"b":null},"mid":[1,"two",false]}`)
	m := mustMap(t, v)
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, m.Keys()); diff != "" {
		t.Fatalf("key order mismatch:\n%s", diff)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"zeta":1,"alpha":{"y":true,"b":null},"mid":[1,"two",false]}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	if _, err := Parse([]byte(`{"a":`)); err == nil {
		t.Fatalf("expected invalid json error")
	}
}

func TestUnmarshalIntoStructField(t *testing.T) {
	var doc struct {
		Tree Value `json:"tree"`
	}
	if err := json.Unmarshal([]byte(`{"tree":{"k":[1,2]}}`), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"k": []any{1.0, 2.0}}, doc.Tree.ToAny()); diff != "" {
		t.Fatalf("decoded tree mismatch:\n%s", diff)
	}
}

func TestStrictEqual(t *testing.T) {
	if !Bool(true).StrictEqual(Bool(true)) {
		t.Fatalf("bools should match")
	}
	if Int(1).StrictEqual(String("1")) {
		t.Fatalf("number and string must not match")
	}
	if MustParse(`{"a":1}`).StrictEqual(MustParse(`{"a":1}`)) {
		t.Fatalf("maps never strictly match")
	}
	if List(Int(1)).StrictEqual(List(Int(1))) {
		t.Fatalf("lists never strictly match")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := MustParse(`{"a":{"b":1}}`)
	cp := orig.Clone()
	inner, _ := Resolve(cp, "a")
	mustMap(t, inner).Set("b", Int(2))
	if got, _ := Resolve(orig, "a/b"); !got.Equal(Int(1)) {
		t.Fatalf("clone shares state with original")
	}
}

func TestFromAnyAndObject(t *testing.T) {
	v, err := FromAny(map[string]any{"b": 1, "a": []any{"x", true}, "n": nil})
	if err != nil {
		t.Fatalf("from any: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "n"}, mustMap(t, v).Keys()); diff != "" {
		t.Fatalf("expected sorted keys:\n%s", diff)
	}
	if _, err := FromAny(struct{}{}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	obj := Object("role", "admin", "status", "active")
	if got, _ := Resolve(obj, "role"); !got.Equal(String("admin")) {
		t.Fatalf("unexpected role %v", got.ToAny())
	}
}

func TestFalsy(t *testing.T) {
	for _, v := range []Value{Null(), Bool(false), Int(0), String("")} {
		if !v.Falsy() {
			t.Fatalf("%s should be falsy", v.Kind())
		}
	}
	for _, v := range []Value{Bool(true), Int(3), String("x"), List(), FromMap(nil)} {
		if v.Falsy() {
			t.Fatalf("%s should be truthy", v.Kind())
		}
	}
}
