package utils

// UniqueStrings removes duplicate values from a slice of strings, preserving order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]bool, len(slice))
	out := make([]string, 0, len(slice))
	for _, v := range slice {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
