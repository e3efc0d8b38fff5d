/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package canonical

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// B64Decode attempts to decode the give string first as an
// RFC 4648 encoded string (with padding). If that fails, then
// RFC 4648 section 3.2 (without padding) is attempted. If
// RFC 4648 section 3.2 fails as well, then the original
// error message (with padding) is returned.
//
// All provided strings are first trimmed of whitespace
// before attempting decoding.
func B64Decode(b64 string) ([]byte, error) {
	// Some OneCRL entries have a trailing space.
	b64trimmed := strings.TrimSpace(b64)
	decoded, err := base64.StdEncoding.DecodeString(b64trimmed)
	if err == nil {
		return decoded, nil
	}
	decoded, err2 := base64.RawStdEncoding.DecodeString(b64trimmed)
	if err2 == nil {
		return decoded, nil
	}
	return nil, errors.Wrap(err, fmt.Sprintf("b64 decode error for '%s'", b64))
}

func B64Encode(src []byte) string {
	return base64.StdEncoding.EncodeToString(src)
}

// Hex renders raw serial or key hash bytes as colon separated, upper case hex (E.G. "0A:1B:FF").
func Hex(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, octet := range b {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{octet})))
	}
	return sb.String()
}

// DecodeData decodes a serial number or key hash as it appears in Kinto or revocations.txt.
//
// Colon separated hex ("0a:1b") is accepted as is, anything else is treated as base64.
// Bare hex is read as base64.
func DecodeData(encoded string) ([]byte, error) {
	trimmed := strings.TrimSpace(encoded)
	if trimmed == "" {
		return nil, errors.New("empty serial number or key hash")
	}
	if strings.Contains(trimmed, ":") {
		b, err := hex.DecodeString(strings.ReplaceAll(trimmed, ":", ""))
		if err == nil {
			return b, nil
		}
	}
	return B64Decode(trimmed)
}

// CanonicalData re-renders an encoded serial number or key hash as canonical hex.
func CanonicalData(encoded string) (string, error) {
	b, err := DecodeData(encoded)
	if err != nil {
		return "", err
	}
	return Hex(b), nil
}
