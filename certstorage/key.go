/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package certstorage

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	"github.com/pkg/errors"
)

var (
	ErrKeyTooShort                 = errors.New("key too short")
	ErrKeyTooLong                  = errors.New("key too long")
	ErrUnsupportedIndefiniteLength = errors.New("unsupported indefinite length")
	ErrMalformedLength             = errors.New("malformed length")
	ErrUnrecognizedPrefix          = errors.New("unrecognized key prefix")
)

var (
	issuerSerialPrefix   = []byte("is")
	subjectKeyHashPrefix = []byte("spk")
)

// KeyDecodeError is returned for cert_storage keys that cannot be split into a name and a tail.
type KeyDecodeError struct {
	Key []byte
	Err error
}

func (e *KeyDecodeError) Error() string {
	return fmt.Sprintf("failed to decode key %s: %v", hex.EncodeToString(e.Key), e.Err)
}

func (e *KeyDecodeError) Unwrap() error {
	return e.Err
}

// SplitKey splits a key into the DER TLV at its head (an X.509 Name) and whatever
// bytes remain after it (a serial number or key hash).
//
// Only the length of the TLV is inspected. Short form lengths and the long forms
// 0x81 and 0x82 are understood, and long forms must be minimal.
func SplitKey(key []byte) (name []byte, tail []byte, err error) {
	if len(key) < 2 {
		return nil, nil, ErrKeyTooShort
	}
	var size int
	switch lengthByte := key[1]; {
	case lengthByte < 0x80:
		size = int(lengthByte) + 2
	case lengthByte == 0x80:
		return nil, nil, ErrUnsupportedIndefiniteLength
	case lengthByte == 0x81:
		if len(key) < 3 {
			return nil, nil, ErrKeyTooShort
		}
		length := int(key[2])
		if length < 0x80 {
			return nil, nil, ErrMalformedLength
		}
		size = length + 3
	case lengthByte == 0x82:
		if len(key) < 4 {
			return nil, nil, ErrKeyTooShort
		}
		length := int(key[2])<<8 | int(key[3])
		if length < 256 {
			return nil, nil, ErrMalformedLength
		}
		size = length + 4
	default:
		return nil, nil, ErrKeyTooLong
	}
	if len(key) < size {
		return nil, nil, ErrKeyTooShort
	}
	return key[:size], key[size:], nil
}

// DecodeKey strips the revocation prefix off of a cert_storage key and splits what remains.
//
// Keys for anything other than revocations (E.G. stored certificates or CRLite data)
// result in ErrUnrecognizedPrefix, which callers should treat as "not mine" rather than a failure.
func DecodeKey(key []byte) (revocation.Kind, []byte, []byte, error) {
	var kind revocation.Kind
	var rest []byte
	switch {
	case bytes.HasPrefix(key, subjectKeyHashPrefix):
		kind, rest = revocation.SubjectKeyHash, key[len(subjectKeyHashPrefix):]
	case bytes.HasPrefix(key, issuerSerialPrefix):
		kind, rest = revocation.IssuerSerial, key[len(issuerSerialPrefix):]
	default:
		return 0, nil, nil, ErrUnrecognizedPrefix
	}
	name, tail, err := SplitKey(rest)
	if err != nil {
		return 0, nil, nil, &KeyDecodeError{Key: key, Err: err}
	}
	return kind, name, tail, nil
}
