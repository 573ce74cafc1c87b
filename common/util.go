package common

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Concat concatenates bytes of byte-able objects
func Concat(par ...interface{}) []byte {
	size := 0
	parts := make([][]byte, len(par))
	for i, p := range par {
		switch p := p.(type) {
		case []byte:
			parts[i] = p
		case byte:
			parts[i] = []byte{p}
		case string:
			parts[i] = []byte(p)
		case interface{ Bytes() []byte }:
			parts[i] = p.Bytes()
		case int:
			if p < 0 || p > 255 {
				panic("Concat: not a 1 byte integer value")
			}
			parts[i] = []byte{byte(p)}
		default:
			Assertf(false, "Concat: unsupported type %T", p)
		}
		size += len(parts[i])
	}
	ret := make([]byte, 0, size)
	for _, p := range parts {
		ret = append(ret, p...)
	}
	return ret
}

// concatBytes allocates exact size array, pooled for small sizes
func concatBytes(data ...[]byte) []byte {
	size := 0
	for _, d := range data {
		size += len(d)
	}
	ret := AllocSmallBuf(size)
	for _, d := range data {
		ret = append(ret, d...)
	}
	return ret
}

// UseConcatBytes optimized for temporary buf, e.g. concatenating a tree's key
// prefix with a caller's key without an allocation that outlives fun.
func UseConcatBytes(fun func(cat []byte), data ...[]byte) {
	cat := concatBytes(data...)
	fun(cat)
	DisposeSmallBuf(cat)
}

// ---------------------------------------------------------------------------
// length-prefixed byte read/write, used by the change codec and the version
// changes codec for encoding Insert payloads and serialized deltas.

func ReadBytes32(r io.Reader) ([]byte, error) {
	var length uint32
	if err := ReadUint32(r, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	ret := make([]byte, length)
	if _, err := io.ReadFull(r, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func WriteBytes32(w io.Writer, data []byte) error {
	if len(data) > math.MaxUint32 {
		panic(fmt.Sprintf("WriteBytes32: too long data (%v)", len(data)))
	}
	if err := WriteUint32(w, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func Uint32To4Bytes(val uint32) []byte {
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], val)
	return tmp4[:]
}

func Uint32From4Bytes(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, errors.New("len(b) != 4")
	}
	return binary.LittleEndian.Uint32(b), nil
}

func MustUint32From4Bytes(b []byte) uint32 {
	ret, err := Uint32From4Bytes(b)
	if err != nil {
		panic(err)
	}
	return ret
}

func ReadUint32(r io.Reader, pval *uint32) error {
	var tmp4 [4]byte
	if _, err := io.ReadFull(r, tmp4[:]); err != nil {
		return err
	}
	*pval = MustUint32From4Bytes(tmp4[:])
	return nil
}

func WriteUint32(w io.Writer, val uint32) error {
	_, err := w.Write(Uint32To4Bytes(val))
	return err
}

// ---------------------------------------------------------------------------

func CatchPanicOrError(f func() error) error {
	var err error
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			var ok bool
			if err, ok = r.(error); !ok {
				err = fmt.Errorf("%v", r)
			}
		}()
		err = f()
	}()
	return err
}

func RequireErrorWith(t *testing.T, err error, fragments ...string) {
	require.Error(t, err)
	for _, f := range fragments {
		require.Contains(t, err.Error(), f)
	}
}

func RequirePanicOrErrorWith(t *testing.T, f func() error, fragments ...string) {
	RequireErrorWith(t, CatchPanicOrError(f), fragments...)
}

// Assertf with optionally deferred evaluation of arguments
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("assertion failed: "+format, EvalLazyArgs(args...)...))
	}
}

func AssertNoError(err error, prefix ...string) {
	pref := "error: "
	if len(prefix) > 0 {
		pref = strings.Join(prefix, " ") + ": "
	}
	Assertf(err == nil, pref+"%w", err)
}

func EvalLazyArgs(args ...any) []any {
	ret := make([]any, len(args))
	for i, arg := range args {
		switch funArg := arg.(type) {
		case func() string:
			ret[i] = funArg()
		case func() bool:
			ret[i] = funArg()
		case func() int:
			ret[i] = funArg()
		case func() byte:
			ret[i] = funArg()
		case func() uint:
			ret[i] = funArg()
		case func() uint16:
			ret[i] = funArg()
		case func() uint32:
			ret[i] = funArg()
		case func() uint64:
			ret[i] = funArg()
		case func() int16:
			ret[i] = funArg()
		case func() int32:
			ret[i] = funArg()
		case func() int64:
			ret[i] = funArg()
		case func() any:
			ret[i] = funArg()
		default:
			ret[i] = arg
		}
	}
	return ret
}
