package storage

import (
	"encoding/json"
	"fmt"
)

// Serializer stores values as encrypted JSON.
type Serializer struct {
	cipher *Cipher
}

func NewSerializer(c *Cipher) *Serializer {
	return &Serializer{cipher: c}
}

func (s *Serializer) Write(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return s.cipher.Encrypt(string(raw))
}

// Read decodes stored into v. An empty string leaves v untouched so the caller
// keeps its default.
func (s *Serializer) Read(stored string, v any) error {
	if stored == "" {
		return nil
	}
	plain, err := s.cipher.Decrypt(stored)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(plain), v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
