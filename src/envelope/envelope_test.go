package envelope

import (
	"reflect"
	"testing"

	"github.com/mosaicnetworks/causal/src/clock"
)

func TestNewCopies(t *testing.T) {
	vc := clock.VectorClock{1, 0, 0}
	payload := []byte("hello")

	env := New(0, 1, Broadcast, payload, NewVectorMetadata(vc))

	vc[1] = 5
	payload[0] = 'j'

	if env.Metadata.Vector[1] != 0 {
		t.Fatalf("Envelope metadata should not alias the sender's clock")
	}
	if string(env.Payload) != "hello" {
		t.Fatalf("Envelope payload should not alias the caller's buffer")
	}
}

func TestDepsSorted(t *testing.T) {
	md := NewDepsMetadata([]Dep{{Process: 2, Seq: 3}, {Process: 0, Seq: 1}})
	expected := []Dep{{Process: 0, Seq: 1}, {Process: 2, Seq: 3}}
	if !reflect.DeepEqual(md.Deps, expected) {
		t.Fatalf("Deps should be %v, not %v", expected, md.Deps)
	}
	if q, ok := md.Dep(2); !ok || q != 3 {
		t.Fatalf("Dep(2) should be 3")
	}
	if _, ok := md.Dep(1); ok {
		t.Fatalf("Dep(1) should not exist")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		env   *Envelope
		algo  Algorithm
		valid bool
	}{
		{"bss ok", New(0, 1, Broadcast, nil, NewVectorMetadata(clock.VectorClock{1, 0, 0})), BSS, true},
		{"bss short vector", New(0, 1, Broadcast, nil, NewVectorMetadata(clock.VectorClock{1, 0})), BSS, false},
		{"wrong algorithm", New(0, 1, Broadcast, nil, NewVectorMetadata(clock.VectorClock{1, 0, 0})), Matrix, false},
		{"sender out of range", New(3, 1, Broadcast, nil, NewVectorMetadata(clock.VectorClock{1, 0, 0})), BSS, false},
		{"seq 0", New(0, 0, Broadcast, nil, NewVectorMetadata(clock.VectorClock{0, 0, 0})), BSS, false},
		{"bad dest", New(0, 1, 7, nil, NewDepsMetadata(nil)), SES, false},
		{"ses ok", New(0, 2, 2, nil, NewDepsMetadata([]Dep{{0, 1}})), SES, true},
		{"ses dep out of range", New(0, 2, 2, nil, NewDepsMetadata([]Dep{{5, 1}})), SES, false},
		{"ses duplicate dep", New(0, 2, 2, nil, NewDepsMetadata([]Dep{{1, 1}, {1, 2}})), SES, false},
		{"matrix ok", New(1, 1, Broadcast, nil, NewMatrixMetadata(clock.NewMatrixClock(3))), Matrix, true},
		{"matrix not square", New(1, 1, Broadcast, nil, NewMatrixMetadata(clock.MatrixClock{{0, 0, 0}, {0, 0}, {0, 0, 0}})), Matrix, false},
	}

	for _, c := range cases {
		err := c.env.Validate(c.algo, 3)
		if c.valid && err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if !c.valid && err == nil {
			t.Fatalf("%s: expected an error", c.name)
		}
	}
}

func TestEnvelopeMarshal(t *testing.T) {
	mc := clock.NewMatrixClock(2)
	mc.Increment(1)
	env := New(1, 1, Broadcast, []byte("payload"), NewMatrixMetadata(mc))

	data, err := env.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	var res Envelope
	if err := res.Unmarshal(data); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(*env, res) {
		t.Fatalf("Unmarshalled envelope should be %#v, not %#v", *env, res)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, a := range Algorithms() {
		p, err := ParseAlgorithm(a.String())
		if err != nil {
			t.Fatal(err)
		}
		if p != a {
			t.Fatalf("ParseAlgorithm(%s) should be %v, not %v", a, a, p)
		}
	}
	if _, err := ParseAlgorithm("lamport"); err == nil {
		t.Fatalf("ParseAlgorithm should fail on unknown names")
	}
}
