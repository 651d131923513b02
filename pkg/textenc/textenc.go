// Package textenc resolves text encodings by name and decodes command output.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultName is used when no encoding is configured.
const DefaultName = "utf-8"

var (
	ErrUnknownEncoding = errors.New("unknown text encoding")
	ErrDecode          = errors.New("decode failed")
)

// Lookup returns the encoding registered under name. WHATWG labels are tried
// first, then IANA names.
func Lookup(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}

	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// Preferred returns the encoding named by the locale environment
// (LC_ALL, LC_CTYPE, LANG in that order). It falls back to UTF-8 when the
// locale carries no charset or names one that is not known.
func Preferred() encoding.Encoding {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		charset := localeCharset(value)
		if charset == "" {
			return unicode.UTF8
		}
		if enc, err := Lookup(charset); err == nil {
			return enc
		}
		return unicode.UTF8
	}
	return unicode.UTF8
}

// localeCharset extracts "GBK" from "zh_CN.GBK@modifier".
func localeCharset(locale string) string {
	dot := strings.IndexByte(locale, '.')
	if dot < 0 {
		return ""
	}
	charset := locale[dot+1:]
	if at := strings.IndexByte(charset, '@'); at >= 0 {
		charset = charset[:at]
	}
	return charset
}

// Decode converts b from enc to a UTF-8 string. On failure the returned string
// holds a best-effort rendition with invalid bytes replaced and the error
// wraps ErrDecode.
func Decode(enc encoding.Encoding, b []byte) (string, error) {
	if enc == nil || enc == unicode.UTF8 {
		if !utf8.Valid(b) {
			return strings.ToValidUTF8(string(b), "�"), fmt.Errorf("%w: invalid utf-8 sequence", ErrDecode)
		}
		return string(b), nil
	}

	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�"), fmt.Errorf("%w: %v", ErrDecode, err)
	}
	// Decoders substitute U+FFFD for invalid input instead of failing.
	if bytes.ContainsRune(out, utf8.RuneError) && !encodesTo(enc, out, b) {
		return string(out), fmt.Errorf("%w: invalid byte sequence", ErrDecode)
	}
	return string(out), nil
}

// encodesTo reports whether text encodes back to exactly raw, meaning any
// U+FFFD in text was present in the input rather than substituted.
func encodesTo(enc encoding.Encoding, text, raw []byte) bool {
	again, err := enc.NewEncoder().Bytes(text)
	return err == nil && bytes.Equal(again, raw)
}
