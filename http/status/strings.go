package status

import "strconv"

var stringCodes = func() (codes [600]string) {
	for i := 100; i < len(codes); i++ {
		codes[i] = strconv.Itoa(i)
	}

	return codes
}()

// StringCode returns the code as a decimal string. Codes in the valid range are served
// from a precomputed table.
func StringCode(code Code) string {
	if int(code) < len(stringCodes) && code >= 100 {
		return stringCodes[code]
	}

	return strconv.Itoa(int(code))
}

// Informational reports whether the code belongs to the 1xx class.
func Informational(code Code) bool {
	return code >= 100 && code < 200
}

// AllowsBody reports whether a response with the code may carry a body.
func AllowsBody(code Code) bool {
	return !Informational(code) && code != NoContent && code != NotModified
}
