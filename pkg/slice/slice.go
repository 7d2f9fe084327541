// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package slice complements the standard [slices] package with the generic
mapping helpers used to turn domain rows into views and enum sets into
validation lists.
*/
package slice

// Map applies transform to every element. A nil input yields an empty,
// non-nil result so JSON encodes it as [].
func Map[T any, U any](input []T, transform func(T) U) []U {
	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}
	return result
}

// Strings converts a slice of string-backed enum values to plain strings.
func Strings[T ~string](input []T) []string {
	return Map(input, func(value T) string { return string(value) })
}
