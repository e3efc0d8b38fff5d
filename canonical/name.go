/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package canonical

import (
	"encoding/asn1"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// BMPString is not among the tags exported by cryptobyte/asn1.
const BMPString = cbasn1.Tag(30)

var ErrUnsupportedStringType = errors.New("unsupported ASN.1 string type")

// Attribute is a single AttributeTypeAndValue of an X.509 Name, with its value
// kept in the string type it was encoded with.
type Attribute struct {
	Type  asn1.ObjectIdentifier
	Tag   cbasn1.Tag
	Value []byte
}

// String decodes the attribute's value.
func (a Attribute) String() (string, error) {
	switch a.Tag {
	case cbasn1.PrintableString, cbasn1.IA5String:
		return string(a.Value), nil
	case cbasn1.UTF8String:
		if !utf8.Valid(a.Value) {
			return "", errors.Errorf("invalid UTF8String value for %s", a.Type)
		}
		return string(a.Value), nil
	case cbasn1.T61String:
		if utf8.Valid(a.Value) {
			return string(a.Value), nil
		}
		// Treated as ISO 8859-1, which is what T61String means in practice.
		runes := make([]rune, len(a.Value))
		for i, b := range a.Value {
			runes[i] = rune(b)
		}
		return string(runes), nil
	case BMPString:
		if len(a.Value)%2 != 0 {
			return "", errors.Errorf("odd length BMPString value for %s", a.Type)
		}
		units := make([]uint16, len(a.Value)/2)
		for i := range units {
			units[i] = uint16(a.Value[2*i])<<8 | uint16(a.Value[2*i+1])
		}
		return string(utf16.Decode(units)), nil
	}
	return "", errors.Wrapf(ErrUnsupportedStringType, "tag %d for %s", int(a.Tag), a.Type)
}

// ParseName reads the attributes of a DER (or definite length BER) encoded X.509 Name
// in the order in which they appear. Multi-valued RDNs are flattened.
//
// Lengths are accepted in any definite form, so two encodings that only differ
// in how they spelled out their lengths produce the same attributes.
func ParseName(der []byte) ([]Attribute, error) {
	tag, rdns, rest, err := readElement(der)
	if err != nil {
		return nil, errors.Wrap(err, "malformed Name")
	}
	if tag != cbasn1.SEQUENCE {
		return nil, errors.Errorf("expected a Name SEQUENCE, got tag %d", int(tag))
	}
	if len(rest) != 0 {
		return nil, errors.Errorf("%d trailing bytes after Name", len(rest))
	}
	attributes := make([]Attribute, 0)
	for len(rdns) > 0 {
		var set []byte
		tag, set, rdns, err = readElement(rdns)
		if err != nil {
			return nil, errors.Wrap(err, "malformed RelativeDistinguishedName")
		}
		if tag != cbasn1.SET {
			return nil, errors.Errorf("expected a RelativeDistinguishedName SET, got tag %d", int(tag))
		}
		for len(set) > 0 {
			var atv []byte
			tag, atv, set, err = readElement(set)
			if err != nil {
				return nil, errors.Wrap(err, "malformed AttributeTypeAndValue")
			}
			if tag != cbasn1.SEQUENCE {
				return nil, errors.Errorf("expected an AttributeTypeAndValue SEQUENCE, got tag %d", int(tag))
			}
			attribute, err := parseAttribute(atv)
			if err != nil {
				return nil, err
			}
			attributes = append(attributes, attribute)
		}
	}
	return attributes, nil
}

func parseAttribute(atv []byte) (Attribute, error) {
	tag, oidBytes, rest, err := readElement(atv)
	if err != nil {
		return Attribute{}, errors.Wrap(err, "malformed attribute type")
	}
	if tag != cbasn1.OBJECT_IDENTIFIER {
		return Attribute{}, errors.Errorf("expected an attribute type OID, got tag %d", int(tag))
	}
	// Rebuild the OID element in DER so that cryptobyte will accept it.
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cbasn1.OBJECT_IDENTIFIER, func(b *cryptobyte.Builder) {
		b.AddBytes(oidBytes)
	})
	element, err := b.Bytes()
	if err != nil {
		return Attribute{}, errors.Wrap(err, "malformed attribute type")
	}
	var oid asn1.ObjectIdentifier
	input := cryptobyte.String(element)
	if !input.ReadASN1ObjectIdentifier(&oid) {
		return Attribute{}, errors.New("malformed attribute type OID")
	}
	valueTag, value, rest, err := readElement(rest)
	if err != nil {
		return Attribute{}, errors.Wrapf(err, "malformed attribute value for %s", oid)
	}
	if len(rest) != 0 {
		return Attribute{}, errors.Errorf("%d trailing bytes after attribute %s", len(rest), oid)
	}
	return Attribute{Type: oid, Tag: valueTag, Value: value}, nil
}

// readElement splits the first definite length TLV off of der. Only low tag numbers are supported.
func readElement(der []byte) (cbasn1.Tag, []byte, []byte, error) {
	if len(der) < 2 {
		return 0, nil, nil, errors.New("truncated element")
	}
	tag := der[0]
	if tag&0x1f == 0x1f {
		return 0, nil, nil, errors.Errorf("high tag numbers are not supported (tag byte %#x)", tag)
	}
	length := int(der[1])
	offset := 2
	switch {
	case length < 0x80:
	case length == 0x80:
		return 0, nil, nil, errors.New("indefinite lengths are not supported")
	default:
		octets := length & 0x7f
		if octets > 4 {
			return 0, nil, nil, errors.Errorf("%d length octets is too many", octets)
		}
		if len(der) < 2+octets {
			return 0, nil, nil, errors.New("truncated length")
		}
		length = 0
		for _, b := range der[2 : 2+octets] {
			length = length<<8 | int(b)
		}
		offset += octets
	}
	if length < 0 || len(der)-offset < length {
		return 0, nil, nil, errors.Errorf("element declares %d bytes but only %d remain", length, len(der)-offset)
	}
	return cbasn1.Tag(tag), der[offset : offset+length], der[offset+length:], nil
}

var shortNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.5":                    "SERIALNUMBER",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.9":                    "STREET",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.17":                   "POSTALCODE",
	"1.2.840.113549.1.9.1":       "emailAddress",
	"0.9.2342.19200300.100.1.1":  "UID",
	"0.9.2342.19200300.100.1.25": "DC",
}

// ShortName returns the conventional short name of an attribute type, or its dotted form.
func ShortName(oid asn1.ObjectIdentifier) string {
	s := oid.String()
	if name, ok := shortNames[s]; ok {
		return name
	}
	return s
}

// NameToString renders attributes as "K=V,K=V" in the order given.
func NameToString(attributes []Attribute) (string, error) {
	pairs := make([]string, 0, len(attributes))
	for _, attribute := range attributes {
		value, err := attribute.String()
		if err != nil {
			return "", err
		}
		pairs = append(pairs, ShortName(attribute.Type)+"="+value)
	}
	return strings.Join(pairs, ","), nil
}

// RDNToString converts a base64 encoded DER Name into its canonical string.
func RDNToString(b64 string) (string, error) {
	der, err := B64Decode(b64)
	if err != nil {
		return "", err
	}
	attributes, err := ParseName(der)
	if err != nil {
		return "", err
	}
	return NameToString(attributes)
}
