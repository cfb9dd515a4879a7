// Package utility - Test các hàm chuyển đổi định dạng.
package utility

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tc := range cases {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Errorf("FormatBytes(%d): kỳ vọng %q, nhận được %q", tc.in, tc.want, got)
		}
	}
}

func TestString2ObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	if got := String2ObjectID(id.Hex()); got != id {
		t.Errorf("hex hợp lệ phải trả về đúng ObjectID, nhận được %v", got)
	}
	if got := String2ObjectID("khong-hop-le"); !got.IsZero() {
		t.Errorf("hex sai phải trả về NilObjectID, nhận được %v", got)
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"user@example.com", "a.b+c@sub.domain.ca"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("email %q phải hợp lệ: %v", email, err)
		}
	}
	invalid := []string{"", "khong-phai-email", "user@", "@example.com", "user@domain"}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("email %q phải bị từ chối", email)
		}
	}
}
