package job

import (
	"bytes"
	"encoding/json"

	"github.com/splitice/go-resque/errors"
)

// payload is the wire form of a descriptor. Args holds a single element,
// which is itself the argument list; the wrapping is part of the format.
type payload struct {
	Class     string        `json:"class"`
	Args      []interface{} `json:"args"`
	ID        string        `json:"id"`
	QueueTime float64       `json:"queue_time"`
}

// Codec encodes and decodes descriptors in the Resque JSON format.
type Codec struct {
	useNumber bool
}

// NewCodec creates a codec with default settings.
func NewCodec() *Codec {
	return &Codec{}
}

// UseNumber returns whether numbers decode as json.Number.
func (c *Codec) UseNumber() bool { return c.useNumber }

// SetUseNumber sets whether numbers decode as json.Number instead of
// float64.
func (c *Codec) SetUseNumber(useNumber bool) { c.useNumber = useNumber }

// Encode converts a descriptor to its wire form.
func (c *Codec) Encode(d *Descriptor) ([]byte, error) {
	p := payload{
		Class:     d.Class,
		Args:      []interface{}{d.Args},
		ID:        d.ID(),
		QueueTime: d.QueueTime,
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Decode converts wire bytes back to a waiting descriptor.
func (c *Codec) Decode(data []byte) (*Descriptor, error) {
	var p payload

	decoder := json.NewDecoder(bytes.NewReader(data))
	if c.useNumber {
		decoder.UseNumber()
	}
	if err := decoder.Decode(&p); err != nil {
		return nil, err
	}
	if p.Class == "" {
		return nil, errors.ErrInvalidPayload
	}

	d := &Descriptor{
		Class:     p.Class,
		Args:      unwrapArgs(p.Args),
		QueueTime: p.QueueTime,
		id:        p.ID,
		state:     StateWaiting,
	}
	return d, nil
}

// unwrapArgs undoes the one-element wrapping. Payloads from producers that
// never wrapped are accepted as-is.
func unwrapArgs(args []interface{}) []interface{} {
	if len(args) == 1 {
		if inner, ok := args[0].([]interface{}); ok {
			return inner
		}
	}
	return args
}

var defaultCodec = NewCodec()

// Encode converts a descriptor to its wire form using the default codec.
func Encode(d *Descriptor) ([]byte, error) {
	return defaultCodec.Encode(d)
}

// Decode converts wire bytes back to a descriptor using the default codec.
func Decode(data []byte) (*Descriptor, error) {
	return defaultCodec.Decode(data)
}
