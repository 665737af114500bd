package scan

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/sdejongh/dupnorris/pkg/models"
)

// Fingerprinter hashes the leading window of a file
type Fingerprinter interface {
	Fingerprint(ctx context.Context, path string) (uint64, error)
}

// Digester computes the full-content digest of a file
type Digester interface {
	Digest(ctx context.Context, path string) (string, error)
}

// ErrorFunc is notified of a file dropped because it could not be read
type ErrorFunc func(path string, err error)

// BucketBySize partitions records by exact size, keeping only sizes shared
// by at least two files. Paths keep their enumeration order.
func BucketBySize(records []models.FileRecord) map[int64][]string {
	all := make(map[int64][]string)
	for _, record := range records {
		all[record.Size] = append(all[record.Size], record.Path)
	}
	for size, paths := range all {
		if len(paths) < 2 {
			delete(all, size)
		}
	}
	return all
}

// sortedSizeBuckets returns the buckets ordered by size descending, so the
// largest files are scheduled first
func sortedSizeBuckets(buckets map[int64][]string) []models.SizeBucket {
	sorted := make([]models.SizeBucket, 0, len(buckets))
	for size, paths := range buckets {
		sorted = append(sorted, models.SizeBucket{Size: size, Paths: paths})
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Size > sorted[j].Size
	})
	return sorted
}

// FingerprintBucket re-partitions one size bucket by fingerprint, keeping
// only fingerprints shared by at least two files. A file that cannot be
// read is passed to onErr and dropped; the rest of the bucket survives.
// The only error returned is the context's.
func FingerprintBucket(ctx context.Context, fp Fingerprinter, paths []string, onErr ErrorFunc) (map[uint64][]string, error) {
	groups := make(map[uint64][]string)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sum, err := fp.Fingerprint(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if onErr != nil {
				onErr(path, err)
			}
			continue
		}
		groups[sum] = append(groups[sum], path)
	}
	return dropSingletons(groups), nil
}

// ConfirmGroups groups the paths of one fingerprint bucket by digest,
// keeping only digests shared by at least two files. digests[i] belongs to
// paths[i]; an empty digest marks a file that could not be read.
func ConfirmGroups(paths, digests []string) map[string][]string {
	groups := make(map[string][]string)
	for i, sum := range digests {
		if sum == "" {
			continue
		}
		groups[sum] = append(groups[sum], paths[i])
	}
	return dropSingletons(groups)
}

func dropSingletons[K comparable](groups map[K][]string) map[K][]string {
	for key, paths := range groups {
		if len(paths) < 2 {
			delete(groups, key)
		}
	}
	return groups
}

// Assemble unions per-bucket digest groups into clusters. Groups are merged
// by digest across buckets; sizes[i] is the file size of groups[i]. Only
// digests with at least two paths become clusters. Paths are sorted within
// a cluster and clusters are ordered by wasted bytes, largest first.
func Assemble(sizes []int64, groups []map[string][]string) []models.Cluster {
	byDigest := make(map[string]*models.Cluster)
	for i, group := range groups {
		for sum, paths := range group {
			cluster, ok := byDigest[sum]
			if !ok {
				cluster = &models.Cluster{Digest: sum, Size: sizes[i]}
				byDigest[sum] = cluster
			}
			cluster.Paths = append(cluster.Paths, paths...)
		}
	}

	clusters := make([]models.Cluster, 0, len(byDigest))
	for _, cluster := range byDigest {
		if len(cluster.Paths) < 2 {
			continue
		}
		slices.Sort(cluster.Paths)
		cluster.Paths = slices.Compact(cluster.Paths)
		if len(cluster.Paths) < 2 {
			continue
		}
		clusters = append(clusters, *cluster)
	}

	sort.Slice(clusters, func(i, j int) bool {
		wi, wj := clusters[i].Wasted(), clusters[j].Wasted()
		if wi != wj {
			return wi > wj
		}
		return strings.Compare(clusters[i].Digest, clusters[j].Digest) < 0
	})
	return clusters
}
