package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// maxDepth bounds recursion so cyclic []any/map[string]any payloads fail
// with an encoding error instead of overflowing the stack.
const maxDepth = 256

// HashContent computes the content hash over the canonical serialization of
// the payload. Pure function: no I/O, no machine-local salt, stable across
// process restarts.
func HashContent(payload any) (domain.ContentHash, error) {
	canonical, err := MarshalAny(payload)
	if err != nil {
		return domain.ContentHash{}, err
	}
	return domain.ContentHash(sha256.Sum256(canonical)), nil
}

// HashBytes hashes raw bytes without canonicalization, for opaque media.
func HashBytes(data []byte) domain.ContentHash {
	return domain.ContentHash(sha256.Sum256(data))
}

// MarshalJSON re-encodes a JSON document in canonical form: object keys
// sorted recursively, numbers normalized, non-finite values rejected.
func MarshalJSON(input []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", domain.ErrEncoding, err)
	}
	if err := ensureEOF(dec); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := writeCanonical(buf, value, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalAny canonicalizes an arbitrary value. Struct values round-trip
// through encoding/json first, so only JSON-visible fields participate.
func MarshalAny(v any) ([]byte, error) {
	switch value := v.(type) {
	case nil, bool, string, json.Number, float64, float32,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		map[string]any, []any:
		buf := &bytes.Buffer{}
		if err := writeCanonical(buf, value, 0); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case json.RawMessage:
		return MarshalJSON([]byte(value))
	case []byte:
		return MarshalJSON(value)
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
		}
		return MarshalJSON(b)
	}
}

func ensureEOF(dec *json.Decoder) error {
	var extra any
	if err := dec.Decode(&extra); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON: %v", domain.ErrEncoding, err)
	}
	return fmt.Errorf("%w: trailing data", domain.ErrEncoding)
}

func writeCanonical(buf *bytes.Buffer, value any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: payload nesting exceeds %d levels", domain.ErrEncoding, maxDepth)
	}
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeString(buf, v)
	case json.Number:
		num, err := normalizeNumberString(v.String())
		if err != nil {
			return err
		}
		buf.WriteString(num)
	case float64:
		num, err := normalizeFloat(v)
		if err != nil {
			return err
		}
		buf.WriteString(num)
	case float32:
		return writeCanonical(buf, float64(v), depth)
	case int:
		return writeCanonical(buf, float64(v), depth)
	case int8:
		return writeCanonical(buf, float64(v), depth)
	case int16:
		return writeCanonical(buf, float64(v), depth)
	case int32:
		return writeCanonical(buf, float64(v), depth)
	case int64:
		return writeCanonical(buf, float64(v), depth)
	case uint:
		return writeCanonical(buf, float64(v), depth)
	case uint8:
		return writeCanonical(buf, float64(v), depth)
	case uint16:
		return writeCanonical(buf, float64(v), depth)
	case uint32:
		return writeCanonical(buf, float64(v), depth)
	case uint64:
		return writeCanonical(buf, float64(v), depth)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, v[k], depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("%w: unsupported JSON type %T", domain.ErrEncoding, value)
	}
	return nil
}

var hexLower = []byte("0123456789abcdef")

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexLower[r>>4])
				buf.WriteByte(hexLower[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func normalizeNumberString(number string) (string, error) {
	f, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid JSON number: %v", domain.ErrEncoding, err)
	}
	return normalizeFloat(f)
}

func normalizeFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: non-finite number", domain.ErrEncoding)
	}
	if f == 0 {
		return "0", nil
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = math.Abs(f)
	}

	mantissa, exp, err := splitScientific(f)
	if err != nil {
		return "", err
	}
	digits := strings.ReplaceAll(mantissa, ".", "")

	if exp <= -7 || exp >= 21 {
		if len(digits) == 1 {
			return sign + digits + "e" + strconv.Itoa(exp), nil
		}
		return sign + digits[:1] + "." + digits[1:] + "e" + strconv.Itoa(exp), nil
	}

	point := exp + 1
	if point >= len(digits) {
		return sign + digits + strings.Repeat("0", point-len(digits)), nil
	}
	if point <= 0 {
		return sign + "0." + strings.Repeat("0", -point) + digits, nil
	}
	return sign + digits[:point] + "." + digits[point:], nil
}

func splitScientific(f float64) (string, int, error) {
	s := strconv.FormatFloat(f, 'e', -1, 64)
	parts := strings.SplitN(s, "e", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("%w: invalid float format %q", domain.ErrEncoding, s)
	}
	exp, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid float exponent: %v", domain.ErrEncoding, err)
	}
	return parts[0], exp, nil
}
