package models

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"unicode/utf8"
)

// Identity describes who is behind a connection. It is supplied by the
// gatekeeper at upgrade time and is immutable for the life of the connection.
type Identity struct {
	UserID    string `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	UserImage string `json:"user_image,omitempty"`
}

// DecodeUserName decodes a display name that the gatekeeper sent as base64
// of its UTF-8 bytes (headers only carry Latin-1 safely).
func DecodeUserName(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 user name: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("user name is not valid UTF-8")
	}

	return string(raw), nil
}

// DecodeUserNameOrRaw is DecodeUserName with the raw value as fallback.
// A bad header never fails the connection.
func DecodeUserNameOrRaw(encoded string) string {
	name, err := DecodeUserName(encoded)
	if err != nil {
		return encoded
	}
	return name
}

// DecodeUserImage decodes a percent-encoded avatar URL, falling back to the
// raw value.
func DecodeUserImage(encoded string) string {
	if encoded == "" {
		return ""
	}
	image, err := url.PathUnescape(encoded)
	if err != nil {
		return encoded
	}
	return image
}
