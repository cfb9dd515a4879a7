// Package utility - Test mã hóa mật khẩu credential.
package utility

import (
	"encoding/base64"
	"testing"
)

func TestPasswordCipher_RoundTrip(t *testing.T) {
	pc := NewPasswordCipher("app-secret")
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt trả về lỗi: %v", err)
	}

	encrypted, err := pc.EncryptPassword("mật-khẩu-IRCC-123!", salt)
	if err != nil {
		t.Fatalf("EncryptPassword trả về lỗi: %v", err)
	}
	if encrypted == "mật-khẩu-IRCC-123!" {
		t.Fatal("ciphertext không được trùng plaintext")
	}

	decrypted, err := pc.DecryptPassword(encrypted, salt)
	if err != nil {
		t.Fatalf("DecryptPassword trả về lỗi: %v", err)
	}
	if decrypted != "mật-khẩu-IRCC-123!" {
		t.Errorf("round trip sai: kỳ vọng %q, nhận được %q", "mật-khẩu-IRCC-123!", decrypted)
	}
}

func TestPasswordCipher_DifferentSaltsDifferentKeys(t *testing.T) {
	pc := NewPasswordCipher("app-secret")

	encrypted, err := pc.EncryptPassword("same-password", "salt-one")
	if err != nil {
		t.Fatalf("EncryptPassword trả về lỗi: %v", err)
	}

	// Giải mã với salt khác phải thất bại vì khóa dẫn xuất khác nhau.
	if _, err := pc.DecryptPassword(encrypted, "salt-two"); err == nil {
		t.Error("giải mã với salt sai phải thất bại")
	}
}

func TestPasswordCipher_TamperedCiphertextFails(t *testing.T) {
	pc := NewPasswordCipher("app-secret")

	encrypted, err := pc.EncryptPassword("password", "salt")
	if err != nil {
		t.Fatalf("EncryptPassword trả về lỗi: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		t.Fatalf("ciphertext phải là base64 hợp lệ: %v", err)
	}
	raw[len(raw)-1] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := pc.DecryptPassword(tampered, "salt"); err == nil {
		t.Error("ciphertext bị sửa phải bị GCM từ chối")
	}
}

func TestPasswordCipher_InvalidInputs(t *testing.T) {
	pc := NewPasswordCipher("app-secret")

	if _, err := pc.DecryptPassword("không phải base64!!!", "salt"); err == nil {
		t.Error("input không phải base64 phải trả về lỗi")
	}
	if _, err := pc.DecryptPassword(base64.StdEncoding.EncodeToString([]byte("ngắn")), "salt"); err == nil {
		t.Error("ciphertext ngắn hơn nonce phải trả về lỗi")
	}
}

func TestNewSalt_Unique(t *testing.T) {
	a, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt trả về lỗi: %v", err)
	}
	b, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt trả về lỗi: %v", err)
	}
	if a == b {
		t.Error("hai salt liên tiếp không được trùng nhau")
	}
}
