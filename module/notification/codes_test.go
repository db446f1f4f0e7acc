package notification

import "testing"

func TestValidCode(t *testing.T) {
	cases := []struct {
		code       int32
		privileged bool
		want       bool
	}{
		{0, false, true},
		{5, false, true},
		{-1, false, false}, // 应用来源的负数码一律拒绝
		{-2, false, false},
		{int32(CodeFriendRequest), true, true},
		{int32(CodeSessionKick), true, true},
		{-999, true, false}, // 未登记的负数码，系统来源也不行
		{7, true, true},
	}
	for _, tc := range cases {
		if got := ValidCode(tc.code, tc.privileged); got != tc.want {
			t.Errorf("ValidCode(%d, priv=%v)=%v want %v", tc.code, tc.privileged, got, tc.want)
		}
	}
}
