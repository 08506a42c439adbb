// Package collection holds the slice helpers the services use to shape
// query results:
//
//	items := collection.FlatMap(invoices, func(inv models.Invoice) []models.InvoiceItem { return inv.Items })
//	byName := collection.GroupBy(items, func(it models.InvoiceItem) string { return it.ProductName })
package collection

import "slices"

// Map applies fn to every element. A nil input yields an empty, non-nil
// slice so JSON encodes it as [].
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, 0, len(s))
	for _, v := range s {
		out = append(out, fn(v))
	}
	return out
}

// FlatMap maps each element to a slice and concatenates the results.
func FlatMap[T, R any](s []T, fn func(T) []R) []R {
	var out []R
	for _, v := range s {
		out = append(out, fn(v)...)
	}
	return out
}

// Filter returns a new slice with the elements keep accepts.
func Filter[T any](s []T, keep func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// GroupBy buckets s by key, keeping the input order inside each bucket.
func GroupBy[T any, K comparable](s []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, v := range s {
		k := key(v)
		out[k] = append(out[k], v)
	}
	return out
}

// Reduce folds s into a single value starting from initial.
func Reduce[T, R any](s []T, initial R, fn func(acc R, item T) R) R {
	acc := initial
	for _, v := range s {
		acc = fn(acc, v)
	}
	return acc
}

// SortBy stable-sorts s in place with less and returns it.
func SortBy[T any](s []T, less func(a, b T) bool) []T {
	slices.SortStableFunc(s, func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
	return s
}

// Take returns at most the first n elements of s.
func Take[T any](s []T, n int) []T {
	return s[:max(0, min(n, len(s)))]
}
