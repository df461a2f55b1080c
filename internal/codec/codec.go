// Package codec turns match records into compact, cookie-safe strings.
//
// Records are msgpack-encoded with structs written as field-position arrays,
// so no field names travel on the wire. Times are written as integer epoch
// milliseconds and zero times as nil. The payload is deflated when that makes
// it smaller and the result is base64url encoded behind a two byte header:
// the format ('p' plain, 'z' deflated) and the layout version.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

const (
	formatPlain   byte = 'p'
	formatDeflate byte = 'z'
	version       byte = '1'
	headerLen          = 2
)

// ErrMalformed is returned when a string cannot be decoded.
var ErrMalformed = errors.New("codec: malformed value")

var encoding = base64.RawURLEncoding

func init() {
	msgpack.Register(time.Time{}, encodeTime, decodeTime)
}

// Encode serialises v.
func Encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseArrayEncodedStructs(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("codec: encode: %w", err)
	}
	raw := buf.Bytes()

	format := formatPlain
	payload := raw
	if packed, err := deflate(raw); err == nil && len(packed) < len(raw) {
		format = formatDeflate
		payload = packed
	}

	out := make([]byte, headerLen+encoding.EncodedLen(len(payload)))
	out[0] = format
	out[1] = version
	encoding.Encode(out[headerLen:], payload)
	return string(out), nil
}

// Decode parses s into v, which must be a pointer.
func Decode(s string, v any) error {
	if len(s) < headerLen {
		return fmt.Errorf("%w: too short", ErrMalformed)
	}
	if s[1] != version {
		return fmt.Errorf("%w: unknown version %q", ErrMalformed, s[1])
	}
	payload, err := encoding.DecodeString(s[headerLen:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch s[0] {
	case formatPlain:
	case formatDeflate:
		payload, err = inflate(payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return fmt.Errorf("%w: unknown format %q", ErrMalformed, s[0])
	}

	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func deflate(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(b []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()
	return io.ReadAll(r)
}

// Zero times are written as nil, so the Unix epoch itself stays distinct.
func encodeTime(enc *msgpack.Encoder, v reflect.Value) error {
	t := v.Interface().(time.Time)
	if t.IsZero() {
		return enc.EncodeNil()
	}
	return enc.EncodeInt(t.UnixMilli())
}

func decodeTime(dec *msgpack.Decoder, v reflect.Value) error {
	code, err := dec.PeekCode()
	if err != nil {
		return err
	}
	if code == msgpcode.Nil {
		if err := dec.DecodeNil(); err != nil {
			return err
		}
		v.Set(reflect.ValueOf(time.Time{}))
		return nil
	}
	ms, err := dec.DecodeInt64()
	if err != nil {
		return err
	}
	v.Set(reflect.ValueOf(time.UnixMilli(ms).UTC()))
	return nil
}
