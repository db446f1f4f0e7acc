package model

import (
	"strings"
	"testing"
)

func TestComputeVersion(t *testing.T) {
	v1 := ComputeVersion(`{"progress":50}`)
	v2 := ComputeVersion(`{"progress":75}`)
	if v1 == v2 {
		t.Fatal("different content must produce different versions")
	}
	if v1 != ComputeVersion(`{"progress":50}`) {
		t.Fatal("same content must produce the same version")
	}
	if len(v1) != 64 {
		t.Fatalf("version length=%d want 64 hex chars", len(v1))
	}
}

func TestValidValue(t *testing.T) {
	cases := []struct {
		v    string
		want bool
	}{
		{`{"a":1}`, true},
		{`{}`, true},
		{`[1,2]`, false}, // 数组不是对象文档
		{`"str"`, false},
		{``, false},
		{`{bad`, false},
	}
	for _, tc := range cases {
		if got := ValidValue(tc.v); got != tc.want {
			t.Errorf("ValidValue(%q)=%v want %v", tc.v, got, tc.want)
		}
	}
	if ValidValue(`{"a":"` + strings.Repeat("x", maxValueBytes) + `"}`) {
		t.Error("oversized value must be rejected")
	}
}

func TestValidName(t *testing.T) {
	if !ValidName("saves") || !ValidName("save.game_01") {
		t.Error("plain names must be valid")
	}
	if ValidName("") {
		t.Error("empty name must be invalid")
	}
	if ValidName(strings.Repeat("c", maxNameLen+1)) {
		t.Error("overlong name must be invalid")
	}
	if ValidName(string([]byte{0xff, 0xfe})) {
		t.Error("non-utf8 name must be invalid")
	}
}
