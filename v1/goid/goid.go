package goid

import "runtime"

// ID returns the runtime identifier of the calling goroutine.
//
// The ID is parsed from the first line of the goroutine's stack trace, which
// has the form "goroutine 123 [running]:". This works on every platform and
// Go version; callers that need it on a hot path should capture it once per
// scope rather than per operation.
func ID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parse(buf[:n])
}

func parse(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
