// Package encoding seals small state records (scroll cursors, component
// snapshots) into URL-safe strings that round-trip through the browser.
//
// A string is either signed (base64 payload, a dot, a truncated HMAC) or
// encrypted (base64 of nonce and AES-256-GCM ciphertext). Payloads are
// msgpack. Retired keys may be kept for decoding so that strings issued
// before a key rotation stay valid.
package encoding

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrInvalidFormat is returned when an encoded string is malformed.
	ErrInvalidFormat = errors.New("encoding: invalid format")

	// ErrSignatureInvalid is returned when a signed string was tampered with
	// or signed with a key the encoder does not hold.
	ErrSignatureInvalid = errors.New("encoding: signature verification failed")

	// ErrDecryptFailed is returned when an encrypted string cannot be opened.
	ErrDecryptFailed = errors.New("encoding: decryption failed")
)

const macSize = 16

var b64 = base64.RawURLEncoding

type keyPair struct {
	mac  []byte
	aead cipher.AEAD
}

func newKeyPair(key []byte) (keyPair, error) {
	block, err := aes.NewCipher(deriveKey(key, "enc"))
	if err != nil {
		return keyPair{}, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return keyPair{}, err
	}
	return keyPair{mac: deriveKey(key, "mac"), aead: aead}, nil
}

// deriveKey returns the 32-byte subkey of key for label. Signing and
// encryption never share key material.
func deriveKey(key []byte, label string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(label))
	return h.Sum(nil)
}

func (k keyPair) sum(data []byte) []byte {
	h := hmac.New(sha256.New, k.mac)
	h.Write(data)
	return h.Sum(nil)[:macSize]
}

// Encoder seals values with its current key and opens strings sealed with
// the current key or any retired one.
type Encoder struct {
	keys []keyPair
}

// NewEncoder creates an encoder that seals with key. Strings sealed with
// any of retired still decode. Keys of any length are accepted; separate
// signing and encryption subkeys are derived from each with HMAC-SHA256.
func NewEncoder(key []byte, retired ...[]byte) (*Encoder, error) {
	e := &Encoder{keys: make([]keyPair, 0, 1+len(retired))}
	for _, k := range append([][]byte{key}, retired...) {
		kp, err := newKeyPair(k)
		if err != nil {
			return nil, err
		}
		e.keys = append(e.keys, kp)
	}
	return e, nil
}

// Encodable is implemented by types that flatten themselves into a map.
type Encodable interface {
	HXEncode() map[string]any
}

// Decodable is implemented by types that restore themselves from a map.
type Decodable interface {
	HXDecode(map[string]any) error
}

// Encode packs v and seals it. sensitive selects encryption over signing.
// Values that are not Encodable are packed using their msgpack tags.
func (e *Encoder) Encode(v any, sensitive bool) (string, error) {
	payload := v
	if enc, ok := v.(Encodable); ok {
		payload = enc.HXEncode()
	}
	packed, err := msgpack.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding: marshal %T: %w", v, err)
	}
	if sensitive {
		return e.encrypt(packed)
	}
	return e.sign(packed), nil
}

// Decode opens encoded and unpacks it into v, which must be a pointer.
// sensitive must match the mode the string was encoded with.
func (e *Encoder) Decode(encoded string, sensitive bool, v any) error {
	open := e.verify
	if sensitive {
		open = e.decrypt
	}
	packed, err := open(encoded)
	if err != nil {
		return err
	}

	target := v
	var fields map[string]any
	dec, decodable := v.(Decodable)
	if decodable {
		target = &fields
	}
	if err := msgpack.Unmarshal(packed, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if decodable {
		return dec.HXDecode(fields)
	}
	return nil
}

func (e *Encoder) sign(data []byte) string {
	return b64.EncodeToString(data) + "." + b64.EncodeToString(e.keys[0].sum(data))
}

func (e *Encoder) verify(encoded string) ([]byte, error) {
	body, sig, ok := strings.Cut(encoded, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
	}
	data, err := b64.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	mac, err := b64.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for _, k := range e.keys {
		if hmac.Equal(mac, k.sum(data)) {
			return data, nil
		}
	}
	return nil, ErrSignatureInvalid
}

func (e *Encoder) encrypt(data []byte) (string, error) {
	aead := e.keys[0].aead
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(data)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return b64.EncodeToString(aead.Seal(nonce, nonce, data, nil)), nil
}

func (e *Encoder) decrypt(encoded string) ([]byte, error) {
	raw, err := b64.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for _, k := range e.keys {
		n := k.aead.NonceSize()
		if len(raw) < n {
			return nil, fmt.Errorf("%w: ciphertext too short", ErrInvalidFormat)
		}
		if data, err := k.aead.Open(nil, raw[:n], raw[n:], nil); err == nil {
			return data, nil
		}
	}
	return nil, ErrDecryptFailed
}
