package installer

import "fmt"

// hexTable maps every byte to its nibble value, or 0xff for non-hex bytes.
var hexTable = func() (t [256]byte) {
	for i := range t {
		t[i] = 0xff
	}
	for c := byte('0'); c <= '9'; c++ {
		t[c] = c - '0'
	}
	for c := byte('a'); c <= 'f'; c++ {
		t[c] = c - 'a' + 10
		t[c-'a'+'A'] = c - 'a' + 10
	}
	return t
}()

// HexError describes a malformed hex string.
type HexError struct {
	Index int  // offending position
	Char  byte // offending character, zero for odd length
	Odd   bool // the string had an odd length
}

func (e *HexError) Error() string {
	if e.Odd {
		return fmt.Sprintf("odd length hex string: unpaired character %q at index %d", e.Char, e.Index)
	}
	return fmt.Sprintf("invalid hex character %q at index %d", e.Char, e.Index)
}

// DecodeHex decodes a lower or upper case hex string.
// Errors are KindVerifier and wrap a *HexError.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, &Error{
			Kind: KindVerifier,
			Desc: "decode hex",
			Err:  &HexError{Index: len(s) - 1, Char: s[len(s)-1], Odd: true},
		}
	}

	out := make([]byte, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		hi, lo := hexTable[s[i]], hexTable[s[i+1]]
		// Valid nibbles never exceed 0x0f, so the OR is 0xff only on a miss.
		if hi|lo == 0xff {
			idx := i
			if hi != 0xff {
				idx = i + 1
			}
			return nil, &Error{
				Kind: KindVerifier,
				Desc: "decode hex",
				Err:  &HexError{Index: idx, Char: s[idx]},
			}
		}
		out[i/2] = hi<<4 | lo
	}
	return out, nil
}
