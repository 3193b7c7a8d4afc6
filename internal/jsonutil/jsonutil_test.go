package jsonutil

import "testing"

func TestUnmarshalFlex_Direct(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	if err := UnmarshalFlex([]byte(`{"a": 3}`), &v); err != nil {
		t.Fatalf("direct: %v", err)
	}
	if v.A != 3 {
		t.Fatalf("a = %d", v.A)
	}
}

func TestUnmarshalFlex_QuotedPayload(t *testing.T) {
	var v struct {
		Crop string `json:"crop"`
	}
	raw := []byte(`"{\"crop\": \"Mil\"}"`)
	if err := UnmarshalFlex(raw, &v); err != nil {
		t.Fatalf("quoted payload: %v", err)
	}
	if v.Crop != "Mil" {
		t.Fatalf("crop = %q", v.Crop)
	}
}

func TestUnmarshalFlex_Invalid(t *testing.T) {
	var v map[string]any
	if err := UnmarshalFlex([]byte("not json at all"), &v); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestNormalizeJSON_UnescapesUnicode(t *testing.T) {
	out, err := NormalizeJSON([]byte("{\"s\": \"a \\u003e b\"}"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if string(out) != `{"s":"a > b"}` {
		t.Fatalf("out = %s", out)
	}
}

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"s": "<b>"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"s":"<b>"}` {
		t.Fatalf("out = %s", out)
	}
}
