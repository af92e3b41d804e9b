package utils

// RemoveDuplicates returns the distinct elements of items, each at the
// position of its first occurrence.
func RemoveDuplicates[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	unique := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}
