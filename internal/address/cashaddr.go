package address

import (
	"errors"
	"fmt"
	"strings"
)

const (
	cashCharset      = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	cashChecksumSize = 8
)

var (
	// ErrInvalidCashAddr indicates a malformed cashaddr string.
	ErrInvalidCashAddr = errors.New("invalid cashaddr encoding")

	// ErrMixedCase indicates the string mixes upper and lower case characters.
	ErrMixedCase = errors.New("mixed case address")

	//nolint:gochecknoglobals // Required for cashaddr decoding
	cashCharsetMap = func() map[rune]byte {
		m := make(map[rune]byte, len(cashCharset))
		for i, c := range cashCharset {
			m[c] = byte(i)
		}
		return m
	}()

	// hash sizes indexed by the low three bits of the version byte
	//nolint:gochecknoglobals // Lookup table
	cashHashSizes = [8]int{20, 24, 28, 32, 40, 48, 56, 64}
)

// cashPayload is the decoded content of a cashaddr string.
type cashPayload struct {
	prefix   string
	typeBits byte
	hash     []byte
}

// decodeCashAddr decodes a cashaddr string that carries an explicit prefix.
func decodeCashAddr(s string) (*cashPayload, error) {
	if strings.ToLower(s) != s && strings.ToUpper(s) != s {
		return nil, ErrMixedCase
	}
	s = strings.ToLower(s)

	idx := strings.LastIndexByte(s, ':')
	if idx <= 0 || idx == len(s)-1 {
		return nil, fmt.Errorf("%w: missing prefix", ErrInvalidCashAddr)
	}
	prefix, body := s[:idx], s[idx+1:]

	values := make([]byte, len(body))
	for i, c := range body {
		v, ok := cashCharsetMap[c]
		if !ok {
			return nil, fmt.Errorf("%w: invalid character '%c'", ErrInvalidCashAddr, c)
		}
		values[i] = v
	}

	if len(values) <= cashChecksumSize {
		return nil, fmt.Errorf("%w: too short", ErrInvalidCashAddr)
	}

	if cashPolymod(append(prefixValues(prefix), values...)) != 0 {
		return nil, ErrInvalidChecksum
	}

	data, err := convertBits(values[:len(values)-cashChecksumSize], 5, 8, false)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidCashAddr)
	}

	version := data[0]
	if version&0x80 != 0 {
		return nil, fmt.Errorf("%w: reserved version bit set", ErrInvalidCashAddr)
	}

	hash := data[1:]
	if len(hash) != cashHashSizes[version&0x07] {
		return nil, ErrInvalidLength
	}

	return &cashPayload{
		prefix:   prefix,
		typeBits: (version >> 3) & 0x0f,
		hash:     hash,
	}, nil
}

// encodeCashAddr renders a prefix, type and hash as a cashaddr string.
func encodeCashAddr(prefix string, typeBits byte, hash []byte) (string, error) {
	sizeBits := -1
	for i, n := range cashHashSizes {
		if n == len(hash) {
			sizeBits = i
			break
		}
	}
	if sizeBits < 0 {
		return "", ErrInvalidLength
	}

	payload := make([]byte, 0, 1+len(hash))
	payload = append(payload, typeBits<<3|byte(sizeBits))
	payload = append(payload, hash...)

	values, err := convertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}

	checksumInput := append(prefixValues(prefix), values...)
	checksumInput = append(checksumInput, make([]byte, cashChecksumSize)...)
	mod := cashPolymod(checksumInput)

	var sb strings.Builder
	sb.Grow(len(prefix) + 1 + len(values) + cashChecksumSize)
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, v := range values {
		sb.WriteByte(cashCharset[v])
	}
	for i := 0; i < cashChecksumSize; i++ {
		sb.WriteByte(cashCharset[(mod>>(5*(7-i)))&0x1f])
	}

	return sb.String(), nil
}

// prefixValues returns the lower five bits of each prefix character followed
// by the zero separator.
func prefixValues(prefix string) []byte {
	out := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		out = append(out, prefix[i]&0x1f)
	}
	return append(out, 0)
}

func cashPolymod(values []byte) uint64 {
	c := uint64(1)
	for _, d := range values {
		c0 := byte(c >> 35)
		c = ((c & 0x07ffffffff) << 5) ^ uint64(d)

		if c0&0x01 != 0 {
			c ^= 0x98f2bc8e61
		}
		if c0&0x02 != 0 {
			c ^= 0x79b76d99e2
		}
		if c0&0x04 != 0 {
			c ^= 0xf33e5fb3c4
		}
		if c0&0x08 != 0 {
			c ^= 0xae2eabe2a8
		}
		if c0&0x10 != 0 {
			c ^= 0x1e4f43e470
		}
	}
	return c ^ 1
}

// convertBits regroups a byte slice from one bit width to another.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var (
		acc  uint32
		bits uint
		out  = make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	)
	maxv := uint32(1)<<toBits - 1

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("%w: value out of range", ErrInvalidCashAddr)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits&maxv))
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits)&maxv))
		}
	} else if bits >= fromBits || acc<<(toBits-bits)&maxv != 0 {
		return nil, fmt.Errorf("%w: non-zero padding", ErrInvalidCashAddr)
	}

	return out, nil
}
