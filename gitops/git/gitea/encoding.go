package gitea

import (
	"encoding/base64"
	"strings"
)

// encodeBase64 encodes a file body for the contents
// API.
func encodeBase64(content []byte) string {
	return base64.StdEncoding.EncodeToString(content)
}

// decodeBase64 decodes a contents API body. Some
// servers wrap long payloads with newlines, which the
// std decoder rejects.
func decodeBase64(content string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}

		return r
	}, content)

	return base64.StdEncoding.DecodeString(compact)
}
