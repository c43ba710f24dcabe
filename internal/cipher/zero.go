package cipher

// Zero overwrites a byte slice with zeros to clear key material from memory.
func Zero(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
