package design

import "xelda/internal/storage"

// CanGenerate reports whether the user has generation allowance left.
// A limit of storage.UnlimitedGenerations never blocks.
func CanGenerate(q storage.UsageQuota) bool {
	if q.Limit == storage.UnlimitedGenerations {
		return true
	}
	return q.Used < q.Limit
}
