package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

var ErrEmptyURL = errors.New("empty url")

// HashKey returns the hex SHA-256 of an encoded key. Postgres stores it as
// the fixed-length natural key of a document.
func HashKey(encoded []byte) string {
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// ToAbsoluteURL resolves ref against base. Protocol-relative refs take the
// scheme of base.
func ToAbsoluteURL(base *url.URL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyURL
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}
