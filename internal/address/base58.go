package address

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
)

const (
	// checksumLen is the length of the base58check checksum in bytes.
	checksumLen = 4

	// hash160Len is the length of a RIPEMD-160 payload.
	hash160Len = 20

	// maxLegacyLen is the longest base58check encoding of a 25-byte payload.
	maxLegacyLen = 35

	// Base58 alphabet (excludes 0, O, I, l).
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

var (
	// ErrInvalidBase58 indicates invalid base58 encoding.
	ErrInvalidBase58 = errors.New("invalid base58 encoding")

	// ErrInvalidChecksum indicates checksum validation failed.
	ErrInvalidChecksum = errors.New("invalid checksum")

	// ErrInvalidLength indicates the decoded payload has the wrong length.
	ErrInvalidLength = errors.New("invalid address length")

	// base58AlphabetMap maps base58 characters to their values.
	//nolint:gochecknoglobals // Required for base58 decoding
	base58AlphabetMap = func() map[rune]int {
		m := make(map[rune]int, len(base58Alphabet))
		for i, c := range base58Alphabet {
			m[c] = i
		}
		return m
	}()
)

// decodeBase58Check decodes a base58check string into its version byte and payload.
func decodeBase58Check(s string) (version byte, payload []byte, err error) {
	if len(s) > maxLegacyLen {
		return 0, nil, ErrInvalidLength
	}

	decoded, err := base58Decode(s)
	if err != nil {
		return 0, nil, err
	}

	if len(decoded) != 1+hash160Len+checksumLen {
		return 0, nil, ErrInvalidLength
	}

	data := decoded[:len(decoded)-checksumLen]
	checksum := decoded[len(decoded)-checksumLen:]

	expected := doubleSHA256Checksum(data)
	if !bytes.Equal(checksum, expected) {
		return 0, nil, fmt.Errorf("%w: expected %x, got %x", ErrInvalidChecksum, expected, checksum)
	}

	return data[0], data[1:], nil
}

// encodeBase58Check encodes a version byte and payload with a checksum.
func encodeBase58Check(version byte, payload []byte) string {
	data := make([]byte, 1+len(payload), 1+len(payload)+checksumLen)
	data[0] = version
	copy(data[1:], payload)

	return base58Encode(append(data, doubleSHA256Checksum(data)...))
}

func base58Decode(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrInvalidBase58
	}

	// Leading '1's represent leading zero bytes
	leadingOnes := 0
	for _, c := range s {
		if c != '1' {
			break
		}
		leadingOnes++
	}

	result := big.NewInt(0)
	base := big.NewInt(58)

	for _, c := range s {
		value, ok := base58AlphabetMap[c]
		if !ok {
			return nil, fmt.Errorf("%w: invalid character '%c'", ErrInvalidBase58, c)
		}

		result.Mul(result, base)
		result.Add(result, big.NewInt(int64(value)))
	}

	decoded := result.Bytes()

	output := make([]byte, leadingOnes+len(decoded))
	copy(output[leadingOnes:], decoded)

	return output, nil
}

func base58Encode(input []byte) string {
	leadingZeros := 0
	for _, b := range input {
		if b != 0 {
			break
		}
		leadingZeros++
	}

	x := new(big.Int).SetBytes(input)
	base := big.NewInt(58)
	zero := big.NewInt(0)
	mod := new(big.Int)

	var result []byte
	for x.Cmp(zero) > 0 {
		x.DivMod(x, base, mod)
		result = append(result, base58Alphabet[mod.Int64()])
	}

	for i := 0; i < leadingZeros; i++ {
		result = append(result, '1')
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}

// doubleSHA256Checksum computes the first 4 bytes of double SHA256.
func doubleSHA256Checksum(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}
