package util

// UintPtr returns a pointer to a copy of v.
func UintPtr(v uint) *uint {
	return &v
}
