package query

import "github.com/indigo-web/utils/uf"

var halfbyte = func() (table [256]byte) {
	for i := range table {
		table[i] = 0xff
	}

	for c := '0'; c <= '9'; c++ {
		table[c] = byte(c - '0')
	}

	for c := 'a'; c <= 'f'; c++ {
		table[c] = byte(c-'a') + 10
		table[c-'a'+'A'] = byte(c-'a') + 10
	}

	return table
}()

// Unescape decodes percent-encoded sequences and pluses as spaces. The source string is
// returned as is when there's nothing to decode.
func Unescape(src string) (string, error) {
	decoded, _, err := unescape(uf.S2B(src), nil)
	return uf.B2S(decoded), err
}

func unescape(src, dst []byte) (decoded, buffer []byte, err error) {
	dsthead := len(dst)
	modified := false

loop:
	for i, c := range src {
		switch c {
		case '+':
			modified = true
			dst = append(dst, src[:i]...)
			dst = append(dst, ' ')
			src = src[i+1:]
			goto loop
		case '%':
			modified = true

			if len(src)-i < 3 {
				return nil, dst, ErrInvalidEncoding
			}

			a, b := halfbyte[src[i+1]], halfbyte[src[i+2]]
			if a|b > 0x0f {
				return nil, dst, ErrInvalidEncoding
			}

			dst = append(dst, src[:i]...)
			dst = append(dst, (a<<4)|b)
			src = src[i+3:]
			goto loop
		}
	}

	if !modified {
		return src, dst, nil
	}

	dst = append(dst, src...)
	return dst[dsthead:], dst, nil
}
