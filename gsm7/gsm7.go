// Package gsm7 translates between the GSM 03.38 default alphabet and UTF-8.
// SMPP-style gateways deliver message content with one septet value per byte;
// this package maps those values, it does not unpack 7-bit packed octets.
package gsm7

import "strings"

const escape = 0x1B

var basicAlphabet = [128]rune{
	'@', '£', '$', '¥', 'è', 'é', 'ù', 'ì', 'ò', 'Ç', '\n', 'Ø', 'ø', '\r', 'Å', 'å',
	'Δ', '_', 'Φ', 'Γ', 'Λ', 'Ω', 'Π', 'Ψ', 'Σ', 'Θ', 'Ξ', '\x1b', 'Æ', 'æ', 'ß', 'É',
	' ', '!', '"', '#', '¤', '%', '&', '\'', '(', ')', '*', '+', ',', '-', '.', '/',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', ':', ';', '<', '=', '>', '?',
	'¡', 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O',
	'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z', 'Ä', 'Ö', 'Ñ', 'Ü', '§',
	'¿', 'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o',
	'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z', 'ä', 'ö', 'ñ', 'ü', 'à',
}

var extensionAlphabet = map[byte]rune{
	0x0A: '\f',
	0x14: '^',
	0x28: '{',
	0x29: '}',
	0x2F: '\\',
	0x3C: '[',
	0x3D: '~',
	0x3E: ']',
	0x40: '|',
	0x65: '€',
}

// Decode maps GSM 03.38 septet values to UTF-8. Values outside the alphabet
// become the replacement rune; a trailing escape is dropped.
func Decode(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	escaped := false
	for _, value := range data {
		if escaped {
			escaped = false
			if r, ok := extensionAlphabet[value]; ok {
				b.WriteRune(r)
			} else {
				b.WriteRune('�')
			}
			continue
		}
		if value == escape {
			escaped = true
			continue
		}
		if value < 128 {
			b.WriteRune(basicAlphabet[value])
			continue
		}
		b.WriteRune('�')
	}
	return b.String()
}

// Encode maps UTF-8 text back to septet values. Characters outside the
// alphabet become '?'.
func Encode(text string) []byte {
	reverse := reverseBasic()
	reverseExt := reverseExtension()
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if value, ok := reverse[r]; ok {
			out = append(out, value)
			continue
		}
		if value, ok := reverseExt[r]; ok {
			out = append(out, escape, value)
			continue
		}
		out = append(out, '?')
	}
	return out
}

func reverseBasic() map[rune]byte {
	out := make(map[rune]byte, len(basicAlphabet))
	for i, r := range basicAlphabet {
		if r == '\x1b' {
			continue
		}
		out[r] = byte(i)
	}
	return out
}

func reverseExtension() map[rune]byte {
	out := make(map[rune]byte, len(extensionAlphabet))
	for value, r := range extensionAlphabet {
		out[r] = value
	}
	return out
}
