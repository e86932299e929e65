package modbus

import (
	"bytes"
	"math"
	"testing"
)

func TestUint16RoundTrip(t *testing.T) {
	for _, order := range []ByteOrder{BigEndian, LittleEndian} {
		out := make([]byte, 2)
		for v := 0; v <= 0xFFFF; v++ {
			EncodeUint16(uint16(v), order, out)
			if got := DecodeUint16(out[0], out[1], order); got != uint16(v) {
				t.Fatalf("%s: round trip of 0x%04X = 0x%04X", order, v, got)
			}
		}
	}
}

func TestUint16WireLayout(t *testing.T) {
	out := make([]byte, 2)
	EncodeUint16(0x1234, BigEndian, out)
	if !bytes.Equal(out, []byte{0x12, 0x34}) {
		t.Errorf("big endian = % X", out)
	}
	EncodeUint16(0x1234, LittleEndian, out)
	if !bytes.Equal(out, []byte{0x34, 0x12}) {
		t.Errorf("little endian = % X", out)
	}
}

func TestUint32Layout(t *testing.T) {
	tests := []struct {
		bo   ByteOrder
		wo   WordOrder
		want []byte
	}{
		{BigEndian, HighWordFirst, []byte{0x12, 0x34, 0x56, 0x78}},
		{BigEndian, LowWordFirst, []byte{0x56, 0x78, 0x12, 0x34}},
		{LittleEndian, HighWordFirst, []byte{0x34, 0x12, 0x78, 0x56}},
		{LittleEndian, LowWordFirst, []byte{0x78, 0x56, 0x34, 0x12}},
	}
	for _, tt := range tests {
		t.Run(tt.bo.String()+"/"+tt.wo.String(), func(t *testing.T) {
			out := make([]byte, 4)
			EncodeUint32(0x12345678, tt.bo, tt.wo, out)
			if !bytes.Equal(out, tt.want) {
				t.Fatalf("EncodeUint32 = % X, want % X", out, tt.want)
			}
			if got := DecodeUint32(out, tt.bo, tt.wo); got != 0x12345678 {
				t.Fatalf("DecodeUint32 = 0x%08X", got)
			}
		})
	}
}

func TestFloat32RoundTripBitExact(t *testing.T) {
	values := []float32{
		0, float32(math.Copysign(0, -1)), 1.5, -273.15, math.MaxFloat32,
		math.SmallestNonzeroFloat32, float32(math.Inf(1)), float32(math.Inf(-1)),
		math.Float32frombits(0x7FC00001), // NaN with payload
	}
	out := make([]byte, 4)
	for _, bo := range []ByteOrder{BigEndian, LittleEndian} {
		for _, wo := range []WordOrder{HighWordFirst, LowWordFirst} {
			for _, v := range values {
				EncodeFloat32(v, bo, wo, out)
				got := DecodeFloat32(out, bo, wo)
				if math.Float32bits(got) != math.Float32bits(v) {
					t.Errorf("%s/%s: %08X -> %08X", bo, wo, math.Float32bits(v), math.Float32bits(got))
				}
			}
		}
	}
}

func TestPackBits(t *testing.T) {
	values := []bool{true, false, true, true, false, false, true, true, true, false}
	packed := PackBits(values)
	if !bytes.Equal(packed, []byte{0xCD, 0x01}) {
		t.Fatalf("PackBits = % X", packed)
	}
	got := UnpackBits(packed, len(values))
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("bit %d = %v", i, got[i])
		}
	}
}
