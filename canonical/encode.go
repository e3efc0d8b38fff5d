/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package canonical

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// EncodeName re-encodes attributes as a DER Name with one attribute per RDN SET,
// keeping each value's original string type.
//
// Only PrintableString, UTF8String, IA5String, and T61String values are accepted.
func EncodeName(attributes []Attribute) ([]byte, error) {
	for _, attribute := range attributes {
		switch attribute.Tag {
		case cbasn1.PrintableString, cbasn1.UTF8String, cbasn1.IA5String, cbasn1.T61String:
		default:
			return nil, errors.Wrapf(ErrUnsupportedStringType, "tag %d for %s", int(attribute.Tag), attribute.Type)
		}
	}
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, attribute := range attributes {
			attribute := attribute
			b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(attribute.Type)
					b.AddASN1(attribute.Tag, func(b *cryptobyte.Builder) {
						b.AddBytes(attribute.Value)
					})
				})
			})
		}
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode Name")
	}
	return der, nil
}
