package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// jsonObjectWriter builds a JSON object whose keys keep the order they were
// written in. Its zero value is ready to use. The first error is kept and
// returned by MarshalJSON.
type jsonObjectWriter struct {
	buf bytes.Buffer
	err error
}

func (w *jsonObjectWriter) key(k string) {
	if w.buf.Len() > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.WriteString(strconv.Quote(k))
	w.buf.WriteByte(':')
}

// Field writes k with the JSON encoding of v.
func (w *jsonObjectWriter) Field(k string, v any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("could not encode %q: %w", k, err)
		return w
	}
	w.key(k)
	w.buf.Write(b)
	return w
}

// Text writes k with s, unless s is empty.
func (w *jsonObjectWriter) Text(k, s string) *jsonObjectWriter {
	if s == "" {
		return w
	}
	return w.Field(k, s)
}

// Raw merges the fields of obj, a JSON object.
func (w *jsonObjectWriter) Raw(obj []byte) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	obj = bytes.TrimSpace(obj)
	if len(obj) < 2 || obj[0] != '{' || obj[len(obj)-1] != '}' {
		w.err = fmt.Errorf("could not merge %.20q: not a JSON object", obj)
		return w
	}
	fields := bytes.TrimSpace(obj[1 : len(obj)-1])
	if len(fields) == 0 {
		return w
	}
	if w.buf.Len() > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.Write(fields)
	return w
}

// Fields merges the fields of v, which must encode to a JSON object.
func (w *jsonObjectWriter) Fields(v any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("could not encode record: %w", err)
		return w
	}
	return w.Raw(b)
}

// MarshalJSON returns the object built so far.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	res := make([]byte, 0, w.buf.Len()+2)
	res = append(res, '{')
	res = append(res, w.buf.Bytes()...)
	return append(res, '}'), nil
}
