package value

import (
	"bytes"
	"encoding/gob"
	"time"
)

// primitiveWire is the exported mirror of Primitive's unexported
// fields, used only to cross the gob boundary (the TCP adapter and
// pkg/sync both transmit batches of Datapoint, which embed Primitive).
type primitiveWire struct {
	Kind Kind
	I    int64
	F    float64
	S    string
	B    bool
	T    time.Time
	D    time.Duration
	Blob Blob
	List []Primitive
}

func (p Primitive) GobEncode() ([]byte, error) {
	w := primitiveWire{
		Kind: p.kind,
		I:    p.i,
		F:    p.f,
		S:    p.s,
		B:    p.b,
		T:    p.t,
		D:    p.d,
		Blob: p.blob,
		List: p.list,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Primitive) GobDecode(data []byte) error {
	var w primitiveWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	*p = Primitive{
		kind: w.Kind,
		i:    w.I,
		f:    w.F,
		s:    w.S,
		b:    w.B,
		t:    w.T,
		d:    w.D,
		blob: w.Blob,
		list: w.List,
	}
	return nil
}
