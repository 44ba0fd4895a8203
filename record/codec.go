package record

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/pkg/timestamp"
)

// envelope is the JSON wire form of a record. Over NATS the headers travel
// in the message header and the envelope's headers field stays empty.
type envelope struct {
	ID          string       `json:"id,omitempty"`
	Topic       string       `json:"topic,omitempty"`
	Partition   *int32       `json:"partition,omitempty"`
	Key         any          `json:"key,omitempty"`
	KeySchema   string       `json:"key_schema,omitempty"`
	ValueSchema string       `json:"value_schema,omitempty"`
	Timestamp   any          `json:"timestamp,omitempty"`
	Headers     []wireHeader `json:"headers,omitempty"`
	Value       any          `json:"value"`
}

type wireHeader struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Marshal encodes rec as a self-contained JSON envelope, headers included.
func Marshal(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Codec", "Marshal", "nil record check")
	}
	env := toEnvelope(rec)
	for _, h := range rec.Headers.entries {
		env.Headers = append(env.Headers, wireHeader(h))
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Codec", "Marshal", "envelope marshal")
	}
	return data, nil
}

// Unmarshal decodes a JSON envelope produced by Marshal or Encode. Records
// without an ID get a fresh one.
func Unmarshal(data []byte) (*Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Codec", "Unmarshal", "empty payload check")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidData, err), "Codec", "Unmarshal", "envelope decode")
	}

	rec := &Record{
		ID:          env.ID,
		Topic:       env.Topic,
		Partition:   env.Partition,
		Key:         env.Key,
		KeySchema:   env.KeySchema,
		ValueSchema: env.ValueSchema,
		Value:       env.Value,
		Timestamp:   timestamp.FromUnixMs(timestamp.Parse(env.Timestamp)),
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	for _, h := range env.Headers {
		rec.Headers.Add(h.Key, h.Value)
	}
	return rec, nil
}

// Decode builds a record from a NATS message. NATS headers are appended
// after any carried in the envelope, ordered by name. A record without a
// topic takes the message subject.
func Decode(msg *nats.Msg) (*Record, error) {
	if msg == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Codec", "Decode", "nil message check")
	}

	rec, err := Unmarshal(msg.Data)
	if err != nil {
		return nil, err
	}
	if rec.Topic == "" {
		rec.Topic = msg.Subject
	}

	names := make([]string, 0, len(msg.Header))
	for name := range msg.Header {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for _, v := range msg.Header[name] {
			rec.Headers.Add(name, v)
		}
	}
	return rec, nil
}

// Encode builds a NATS message for subject. Header values are stringified.
func Encode(rec *Record, subject string) (*nats.Msg, error) {
	if rec == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Codec", "Encode", "nil record check")
	}
	if subject == "" {
		return nil, errors.WrapInvalid(
			stderrors.New("empty subject"), "Codec", "Encode", "subject check")
	}

	data, err := json.Marshal(toEnvelope(rec))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Codec", "Encode", "envelope marshal")
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	for _, h := range rec.Headers.entries {
		// Assigned directly so header names keep their case.
		msg.Header[h.Key] = append(msg.Header[h.Key], Stringify(h.Value))
	}
	return msg, nil
}

func toEnvelope(rec *Record) envelope {
	env := envelope{
		ID:          rec.ID,
		Topic:       rec.Topic,
		Partition:   rec.Partition,
		Key:         rec.Key,
		KeySchema:   rec.KeySchema,
		ValueSchema: rec.ValueSchema,
		Value:       rec.Value,
	}
	if ms := timestamp.ToUnixMs(rec.Timestamp); ms != 0 {
		env.Timestamp = ms
	}
	return env
}

// Stringify renders a scalar the way it appears in a header or a regex
// input. nil becomes "null".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
