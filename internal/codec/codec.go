// Package codec implements the pluggable wire format layer (spec §4.1):
// encode/decode of JSON-RPC messages, with a default JSON codec, a faster
// JSON-compatible variant, and a MessagePack variant, plus a streaming
// decoder for newline-delimited input.
package codec

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack/v5"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
)

// Codec encodes and decodes wire messages for one format.
type Codec interface {
	// Name identifies the codec, e.g. "json" or "msgpack".
	Name() string

	// ContentType is the MIME type this codec negotiates over HTTP.
	ContentType() string

	// Encode serializes v to the codec's wire representation.
	Encode(v any) ([]byte, error)

	// Decode deserializes data into v.
	Decode(data []byte, v any) error

	// EncodeString serializes v to a string. Binary codecs (MessagePack)
	// fail with an InvalidRequest-kind error since they have no safe
	// string representation.
	EncodeString(v any) (string, error)
}

// jsonCodec backs the default "Json" variant with the standard library,
// the portability baseline every deployment can rely on regardless of
// build configuration.
type jsonCodec struct{}

// Json is the default, always-available codec.
var Json Codec = jsonCodec{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, internalerrors.NewKind("codec", "json.Encode", internalerrors.KindInvalidParams, err)
	}
	return data, nil
}

func (jsonCodec) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return internalerrors.NewKind("codec", "json.Decode", internalerrors.KindParse, err)
	}
	return nil
}

func (c jsonCodec) EncodeString(v any) (string, error) {
	data, err := c.Encode(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// jsonIterCodec is the spec's performance-tier variant. No production Go
// SIMD JSON library appears in the retrieved pack, so json-iterator's
// stdlib-compatible config fills that slot instead.
type jsonIterCodec struct {
	api jsoniter.API
}

// JsonIter is the faster, encoding/json-compatible variant.
var JsonIter Codec = jsonIterCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary}

func (jsonIterCodec) Name() string        { return "json" }
func (jsonIterCodec) ContentType() string { return "application/json" }

func (c jsonIterCodec) Encode(v any) ([]byte, error) {
	data, err := c.api.Marshal(v)
	if err != nil {
		return nil, internalerrors.NewKind("codec", "jsonIter.Encode", internalerrors.KindInvalidParams, err)
	}
	return data, nil
}

func (c jsonIterCodec) Decode(data []byte, v any) error {
	if err := c.api.Unmarshal(data, v); err != nil {
		return internalerrors.NewKind("codec", "jsonIter.Decode", internalerrors.KindParse, err)
	}
	return nil
}

func (c jsonIterCodec) EncodeString(v any) (string, error) {
	data, err := c.Encode(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// msgpackCodec backs the "MessagePack" variant for deployments that
// negotiate a binary wire format instead of JSON.
type msgpackCodec struct{}

// MsgPack is the binary MessagePack codec.
var MsgPack Codec = msgpackCodec{}

func (msgpackCodec) Name() string        { return "msgpack" }
func (msgpackCodec) ContentType() string { return "application/msgpack" }

func (msgpackCodec) Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, internalerrors.NewKind("codec", "msgpack.Encode", internalerrors.KindInvalidParams, err)
	}
	return data, nil
}

func (msgpackCodec) Decode(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return internalerrors.NewKind("codec", "msgpack.Decode", internalerrors.KindParse, err)
	}
	return nil
}

func (msgpackCodec) EncodeString(v any) (string, error) {
	return "", internalerrors.NewKind("codec", "msgpack.EncodeString", internalerrors.KindInvalidRequest,
		fmt.Errorf("msgpack is a binary format and has no string representation"))
}

// ByContentType resolves a negotiated content type to a Codec, falling back
// to JSON (with no error) for anything unrecognized per spec §4.1.
func ByContentType(contentType string) Codec {
	switch contentType {
	case "application/msgpack":
		return MsgPack
	case "application/json", "":
		return JsonIter
	default:
		return JsonIter
	}
}

// StreamingDecoder buffers newline-delimited input and yields one decoded
// value per complete line, matching the framing the line transports use.
type StreamingDecoder struct {
	codec   Codec
	scanner *bufio.Scanner
}

// NewStreamingDecoder wraps r, decoding each line with c.
func NewStreamingDecoder(r io.Reader, c Codec) *StreamingDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	return &StreamingDecoder{codec: c, scanner: scanner}
}

// Next decodes the next line into v. Returns false (with no error) at EOF.
func (d *StreamingDecoder) Next(v any) (bool, error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return false, internalerrors.NewKind("codec", "StreamingDecoder.Next", internalerrors.KindTransportClosed, err)
		}
		return false, nil
	}
	if err := d.codec.Decode(d.scanner.Bytes(), v); err != nil {
		return false, err
	}
	return true, nil
}
