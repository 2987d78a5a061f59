package common

import (
	"encoding/binary"
	"math"
	"reflect"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// LittleEndianHost reports whether in-memory numbers already have wire
// byte order, which allows bulk copies and aliasing.
var LittleEndianHost = !cpu.IsBigEndian

// IsFixedKind reports whether k is a fixed-size primitive kind.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// FixedSize returns the byte width for fixed-size primitive kinds.
func FixedSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}

// Alignment returns the natural alignment of a primitive kind.
func Alignment(k reflect.Kind) int {
	switch k {
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return 1
	}
}

// Aligned reports whether the first byte of b sits on an align boundary.
func Aligned(b []byte, align int) bool {
	if len(b) == 0 || align <= 1 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))%uintptr(align) == 0
}

// AppendFixed appends the little-endian encoding of a primitive value.
func AppendFixed(dst []byte, v reflect.Value) []byte {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return append(dst, 1)
		}
		return append(dst, 0)
	case reflect.Int8:
		return append(dst, byte(v.Int()))
	case reflect.Uint8:
		return append(dst, byte(v.Uint()))
	case reflect.Int16:
		return binary.LittleEndian.AppendUint16(dst, uint16(v.Int()))
	case reflect.Uint16:
		return binary.LittleEndian.AppendUint16(dst, uint16(v.Uint()))
	case reflect.Int32:
		return binary.LittleEndian.AppendUint32(dst, uint32(v.Int()))
	case reflect.Uint32:
		return binary.LittleEndian.AppendUint32(dst, uint32(v.Uint()))
	case reflect.Int64:
		return binary.LittleEndian.AppendUint64(dst, uint64(v.Int()))
	case reflect.Uint64:
		return binary.LittleEndian.AppendUint64(dst, v.Uint())
	case reflect.Float32:
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.Float()))
	default:
		panic("unsupported fixed kind " + v.Kind().String())
	}
}

// SetFixed decodes a fixed-width primitive from b and sets dst.
// b must hold at least FixedSize(dst.Kind()) bytes.
func SetFixed(dst reflect.Value, b []byte) {
	switch dst.Kind() {
	case reflect.Bool:
		dst.SetBool(b[0] != 0)
	case reflect.Int8:
		dst.SetInt(int64(int8(b[0])))
	case reflect.Uint8:
		dst.SetUint(uint64(b[0]))
	case reflect.Int16:
		dst.SetInt(int64(int16(binary.LittleEndian.Uint16(b))))
	case reflect.Uint16:
		dst.SetUint(uint64(binary.LittleEndian.Uint16(b)))
	case reflect.Int32:
		dst.SetInt(int64(int32(binary.LittleEndian.Uint32(b))))
	case reflect.Uint32:
		dst.SetUint(uint64(binary.LittleEndian.Uint32(b)))
	case reflect.Int64:
		dst.SetInt(int64(binary.LittleEndian.Uint64(b)))
	case reflect.Uint64:
		dst.SetUint(binary.LittleEndian.Uint64(b))
	case reflect.Float32:
		dst.SetFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	case reflect.Float64:
		dst.SetFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	default:
		panic("unsupported fixed kind " + dst.Kind().String())
	}
}

// RawBytes views the backing array of a primitive slice as bytes.
// The view aliases v and is only meaningful on a little-endian host.
func RawBytes(v reflect.Value) []byte {
	n := v.Len()
	if n == 0 {
		return nil
	}
	size := FixedSize(v.Type().Elem().Kind())
	return unsafe.Slice((*byte)(v.UnsafePointer()), n*size)
}

// CopyFixed fills the primitive slice dst from little-endian bytes in b,
// which must hold exactly dst.Len() elements.
func CopyFixed(dst reflect.Value, b []byte) {
	copy(RawBytes(dst), b)
}

// AliasFixed returns a slice of type t whose elements live in b. b must be
// aligned for the element kind and hold n elements.
func AliasFixed(t reflect.Type, b []byte, n int) reflect.Value {
	if n == 0 {
		return reflect.MakeSlice(t, 0, 0)
	}
	return reflect.SliceAt(t.Elem(), unsafe.Pointer(&b[0]), n).Convert(t)
}
