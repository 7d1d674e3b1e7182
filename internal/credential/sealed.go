package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const sealedFormat = "aes-gcm-v1"

var (
	ErrNotSealed       = errors.New("value is not sealed")
	ErrSealingDisabled = errors.New("credential encryption key is not configured")
)

type sealedValue struct {
	Enc   string `json:"enc"`
	Nonce string `json:"nonce"`
	Data  string `json:"data"`
}

// Sealer encrypts stored access tokens. The setting key is bound as
// additional data, so a sealed value cannot be moved to another token.
// Values sealed with the previous key still open, which allows rotation.
type Sealer struct {
	primary cipher.AEAD
	all     []cipher.AEAD
}

// NewSealer returns nil when no usable primary key is given.
func NewSealer(primaryKey, previousKey string) (*Sealer, error) {
	primaryKey, previousKey = strings.TrimSpace(primaryKey), strings.TrimSpace(previousKey)
	if primaryKey == "" {
		return nil, nil
	}
	primary, err := newGCM(primaryKey)
	if err != nil {
		return nil, fmt.Errorf("primary key: %w", err)
	}
	s := &Sealer{primary: primary, all: []cipher.AEAD{primary}}
	if previousKey != "" && previousKey != primaryKey {
		prev, err := newGCM(previousKey)
		if err != nil {
			return nil, fmt.Errorf("previous key: %w", err)
		}
		s.all = append(s.all, prev)
	}
	return s, nil
}

func (s *Sealer) Seal(key string, plain []byte) ([]byte, error) {
	nonce := make([]byte, s.primary.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ct := s.primary.Seal(nil, nonce, plain, additionalData(key))
	return json.Marshal(sealedValue{
		Enc:   sealedFormat,
		Nonce: base64.StdEncoding.EncodeToString(nonce),
		Data:  base64.StdEncoding.EncodeToString(ct),
	})
}

func (s *Sealer) Open(key string, raw []byte) ([]byte, error) {
	var v sealedValue
	if err := json.Unmarshal(raw, &v); err != nil || v.Enc != sealedFormat || v.Nonce == "" || v.Data == "" {
		return nil, ErrNotSealed
	}
	nonce, err := base64.StdEncoding.DecodeString(v.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(v.Data)
	if err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	for _, gcm := range s.all {
		if pt, err := gcm.Open(nil, nonce, ct, additionalData(key)); err == nil {
			return pt, nil
		}
	}
	return nil, errors.New("no key opens the sealed value")
}

func additionalData(key string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(key)))
}

// newGCM accepts a base64 or raw key. Lengths between AES sizes are cut
// down to the next smaller one; keys under 16 bytes are rejected.
func newGCM(k string) (cipher.AEAD, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(k)
	if err != nil {
		keyBytes = []byte(k)
	}
	switch n := len(keyBytes); {
	case n < 16:
		return nil, errors.New("key shorter than 16 bytes")
	case n < 24:
		keyBytes = keyBytes[:16]
	case n < 32:
		keyBytes = keyBytes[:24]
	default:
		keyBytes = keyBytes[:32]
	}
	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
