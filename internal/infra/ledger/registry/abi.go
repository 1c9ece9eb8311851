package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Minimal ABI codec for the fixed registry contract surface. Only the types
// the contract uses are supported: string, bytes32, address, uint256, bool.

const wordSize = 32

func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

type argument struct {
	dynamic bool
	head    []byte // static value, or patched to the tail offset
	tail    []byte
}

func stringArg(s string) argument {
	data := []byte(s)
	tail := make([]byte, wordSize+padLen(len(data)))
	big.NewInt(int64(len(data))).FillBytes(tail[:wordSize])
	copy(tail[wordSize:], data)
	return argument{dynamic: true, tail: tail}
}

func bytes32Arg(b [32]byte) argument {
	head := make([]byte, wordSize)
	copy(head, b[:])
	return argument{head: head}
}

func addressArg(addr string) (argument, error) {
	raw, err := decodeAddress(addr)
	if err != nil {
		return argument{}, err
	}
	head := make([]byte, wordSize)
	copy(head[wordSize-20:], raw)
	return argument{head: head}, nil
}

func uint256Arg(v int64) (argument, error) {
	if v < 0 {
		return argument{}, errors.New("uint256 argument must be non-negative")
	}
	head := make([]byte, wordSize)
	big.NewInt(v).FillBytes(head)
	return argument{head: head}, nil
}

// encodeCall builds selector plus head/tail ABI encoding of the arguments.
func encodeCall(signature string, args ...argument) []byte {
	headSize := len(args) * wordSize
	tailSize := 0
	for _, arg := range args {
		if arg.dynamic {
			tailSize += len(arg.tail)
		}
	}
	out := make([]byte, 0, 4+headSize+tailSize)
	out = append(out, selector(signature)...)

	tailOffset := headSize
	heads := make([][]byte, len(args))
	var tails []byte
	for i, arg := range args {
		if arg.dynamic {
			head := make([]byte, wordSize)
			big.NewInt(int64(tailOffset)).FillBytes(head)
			heads[i] = head
			tails = append(tails, arg.tail...)
			tailOffset += len(arg.tail)
		} else {
			heads[i] = arg.head
		}
	}
	for _, head := range heads {
		out = append(out, head...)
	}
	return append(out, tails...)
}

func padLen(n int) int {
	if n%wordSize == 0 {
		return n
	}
	return n + wordSize - n%wordSize
}

func decodeAddress(addr string) ([]byte, error) {
	cleaned := strings.TrimPrefix(strings.TrimSpace(addr), "0x")
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("malformed contributor address %q: %w", addr, err)
	}
	if len(raw) != 20 {
		return nil, fmt.Errorf("contributor address %q is not 20 bytes", addr)
	}
	return raw, nil
}

// returnDecoder walks the words of an ABI-encoded return payload.
type returnDecoder struct {
	data []byte
}

func newReturnDecoder(payload []byte) (*returnDecoder, error) {
	if len(payload)%wordSize != 0 {
		return nil, errors.New("abi return payload is not word aligned")
	}
	return &returnDecoder{data: payload}, nil
}

func (d *returnDecoder) word(i int) ([]byte, error) {
	start := i * wordSize
	if start+wordSize > len(d.data) {
		return nil, fmt.Errorf("abi return payload too short for word %d", i)
	}
	return d.data[start : start+wordSize], nil
}

func (d *returnDecoder) bytes32At(i int) ([32]byte, error) {
	var out [32]byte
	w, err := d.word(i)
	if err != nil {
		return out, err
	}
	copy(out[:], w)
	return out, nil
}

func (d *returnDecoder) addressAt(i int) (string, error) {
	w, err := d.word(i)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(w[wordSize-20:]), nil
}

func (d *returnDecoder) uint64At(i int) (int64, error) {
	w, err := d.word(i)
	if err != nil {
		return 0, err
	}
	v := new(big.Int).SetBytes(w)
	if !v.IsInt64() {
		return 0, errors.New("abi uint256 overflows int64")
	}
	return v.Int64(), nil
}

func (d *returnDecoder) boolAt(i int) (bool, error) {
	v, err := d.uint64At(i)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// stringAt resolves a dynamic string through its head offset.
func (d *returnDecoder) stringAt(i int) (string, error) {
	offset, err := d.uint64At(i)
	if err != nil {
		return "", err
	}
	if offset < 0 || int(offset)+wordSize > len(d.data) {
		return "", fmt.Errorf("abi string offset %d out of range", offset)
	}
	length := new(big.Int).SetBytes(d.data[offset : offset+wordSize])
	if !length.IsInt64() {
		return "", errors.New("abi string length overflows int64")
	}
	start := int(offset) + wordSize
	end := start + int(length.Int64())
	if end > len(d.data) {
		return "", errors.New("abi string exceeds payload")
	}
	return string(d.data[start:end]), nil
}
