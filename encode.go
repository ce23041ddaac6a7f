package tatami

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoder encodes response values to a wire format.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, v any) error
}

// Decoder decodes request bodies from a wire format.
type Decoder interface {
	ContentType() string
	Decode(r io.Reader, v any) error
}

// jsonCodec implements both Encoder and Decoder for JSON.
type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	err := json.NewDecoder(r).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// xmlCodec implements both Encoder and Decoder for XML.
type xmlCodec struct{}

func (xmlCodec) ContentType() string { return "application/xml" }

func (xmlCodec) Encode(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(v)
}

func (xmlCodec) Decode(r io.Reader, v any) error {
	err := xml.NewDecoder(r).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// msgpackCodec implements both Encoder and Decoder for MessagePack.
type msgpackCodec struct{}

func (msgpackCodec) ContentType() string { return "application/msgpack" }

func (msgpackCodec) Encode(w io.Writer, v any) error {
	return msgpack.NewEncoder(w).Encode(v)
}

func (msgpackCodec) Decode(r io.Reader, v any) error {
	err := msgpack.NewDecoder(r).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// codecRegistry holds all registered encoders and decoders.
// Index 0 is always JSON (the default).
type codecRegistry struct {
	encoders []Encoder
	decoders []Decoder
}

// newCodecRegistry builds a registry with JSON first, then XML and
// MessagePack, then any user-registered encoders and decoders.
func newCodecRegistry(userEncoders []Encoder, userDecoders []Decoder) *codecRegistry {
	cr := &codecRegistry{
		encoders: make([]Encoder, 0, 3+len(userEncoders)),
		decoders: make([]Decoder, 0, 3+len(userDecoders)),
	}
	cr.encoders = append(cr.encoders, jsonCodec{}, xmlCodec{}, msgpackCodec{})
	cr.encoders = append(cr.encoders, userEncoders...)
	cr.decoders = append(cr.decoders, jsonCodec{}, xmlCodec{}, msgpackCodec{})
	cr.decoders = append(cr.decoders, userDecoders...)
	return cr
}

// mediaTypeMatches reports whether a parsed media type selects a codec
// registered under registered. Structured-syntax suffixes match their
// base codec, so application/problem+json and application/vnd.api+json
// both select the JSON codec.
func mediaTypeMatches(registered, mediaType string) bool {
	if registered == mediaType {
		return true
	}
	base, ok := strings.CutPrefix(registered, "application/")
	if !ok {
		return false
	}
	return strings.HasSuffix(mediaType, "+"+base)
}

// negotiate picks an encoder for an Accept header value. An empty
// header or */* selects JSON. Candidates are weighted by q-value; an
// explicit Accept with no registered match reports false.
func (cr *codecRegistry) negotiate(accept string) (Encoder, bool) {
	if accept == "" {
		return cr.encoders[0], true
	}

	var (
		best  Encoder
		bestQ = -1.0
	)
	for part := range strings.SplitSeq(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}

		q := 1.0
		if qs, ok := params["q"]; ok {
			if parsed, perr := strconv.ParseFloat(qs, 64); perr == nil {
				q = parsed
			}
		}
		if q <= bestQ {
			continue
		}

		if mediaType == "*/*" {
			best, bestQ = cr.encoders[0], q
			continue
		}
		for _, enc := range cr.encoders {
			if mediaTypeMatches(enc.ContentType(), mediaType) {
				best, bestQ = enc, q
				break
			}
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

// decoderFor returns the decoder for a request Content-Type. An empty
// content type selects JSON; a present but unregistered one reports
// false so the caller can reject the body.
func (cr *codecRegistry) decoderFor(contentType string) (Decoder, bool) {
	if contentType == "" {
		return cr.decoders[0], true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	for _, dec := range cr.decoders {
		if mediaTypeMatches(dec.ContentType(), mediaType) {
			return dec, true
		}
	}
	return nil, false
}

// contentTypes returns all encoder content types (for OpenAPI).
func (cr *codecRegistry) contentTypes() []string {
	cts := make([]string, len(cr.encoders))
	for i, enc := range cr.encoders {
		cts[i] = enc.ContentType()
	}
	return cts
}
