package utility

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// PasswordCipher mã hóa/giải mã mật khẩu IRCC bằng AES-256-GCM.
// Khóa được dẫn xuất từ secret của ứng dụng kết hợp với salt riêng của từng credential,
// nên hai credential có cùng mật khẩu vẫn cho ra ciphertext khác nhau.
type PasswordCipher struct {
	secret string
}

// NewPasswordCipher tạo PasswordCipher với secret của ứng dụng
func NewPasswordCipher(secret string) *PasswordCipher {
	return &PasswordCipher{secret: secret}
}

// deriveKey tạo encryption key từ secret và salt
func (pc *PasswordCipher) deriveKey(salt string) []byte {
	hash := sha256.Sum256([]byte(pc.secret + salt + "_credential_encryption_key"))
	return hash[:]
}

// EncryptPassword mã hóa mật khẩu thành base64 string (nonce được ghép vào đầu ciphertext)
func (pc *PasswordCipher) EncryptPassword(plaintext string, salt string) (string, error) {
	key := pc.deriveKey(salt)

	// Tạo AES cipher block
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	// Tạo GCM
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// Tạo nonce (12 bytes cho GCM)
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Encrypt
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	// Encode to base64
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptPassword giải mã mật khẩu từ base64 string
func (pc *PasswordCipher) DecryptPassword(encryptedBase64 string, salt string) (string, error) {
	key := pc.deriveKey(salt)

	// Decode base64
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	// Tạo AES cipher block
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	// Tạo GCM
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// Kiểm tra độ dài
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	// Extract nonce và ciphertext
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	// Decrypt
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// NewSalt sinh salt ngẫu nhiên 16 bytes dạng base64 cho credential mới
func NewSalt() (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}
