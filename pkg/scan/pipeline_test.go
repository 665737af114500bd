package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/dupnorris/pkg/digest"
	"github.com/sdejongh/dupnorris/pkg/models"
	"github.com/sdejongh/dupnorris/pkg/storage"
)

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, data, 0644))
	}
}

// tempDir returns a test directory with symlinks resolved, matching the
// paths reported for its files
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func sources(t *testing.T, roots ...string) []storage.Source {
	t.Helper()
	visited := storage.NewVisited()
	var out []storage.Source
	for _, root := range roots {
		local, err := storage.NewLocal(root)
		require.NoError(t, err)
		local.SetVisited(visited)
		out = append(out, local)
	}
	return out
}

func newOperation(roots ...string) *models.ScanOperation {
	return &models.ScanOperation{
		Roots:             roots,
		HashAlgorithm:     models.HashBLAKE3,
		FingerprintWindow: models.DefaultFingerprintWindow,
		BufferSize:        models.DefaultBufferSize,
		MinSize:           1,
		MaxWorkers:        4,
	}
}

type harness struct {
	fingerprinter Fingerprinter
	digester      Digester
}

func realHarness(t *testing.T) harness {
	t.Helper()
	hasher, err := digest.NewHasher(storage.Disk{}, models.HashBLAKE3, models.DefaultBufferSize)
	require.NoError(t, err)
	return harness{
		fingerprinter: digest.NewFingerprinter(storage.Disk{}, models.DefaultFingerprintWindow),
		digester:      hasher,
	}
}

func (h harness) run(t *testing.T, ctx context.Context, roots ...string) (*models.Report, error) {
	t.Helper()
	engine := NewEngine(sources(t, roots...), h.fingerprinter, h.digester, nil, nil, newOperation(roots...))
	return engine.Run(ctx)
}

// clusterSets returns each cluster's paths relative to base, sorted, for
// set comparison
func clusterSets(t *testing.T, base string, clusters []models.Cluster) [][]string {
	t.Helper()
	var sets [][]string
	for _, cluster := range clusters {
		var set []string
		for _, path := range cluster.Paths {
			rel, err := filepath.Rel(base, path)
			require.NoError(t, err)
			set = append(set, filepath.ToSlash(rel))
		}
		sort.Strings(set)
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i][0] < sets[j][0] })
	return sets
}

func TestTwoDirectoryScenario(t *testing.T) {
	base := tempDir(t)
	same := bytes.Repeat([]byte("a"), 100)
	b1 := bytes.Repeat([]byte("b"), 100)
	b2 := append(bytes.Repeat([]byte("b"), 99), 'c')
	writeTree(t, base, map[string][]byte{
		"d1/a.txt": same,
		"d1/b.txt": b1,
		"d2/a.txt": same,
		"d2/b.txt": b2,
	})

	report, err := realHarness(t).run(t, context.Background(),
		filepath.Join(base, "d1"), filepath.Join(base, "d2"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, report.Status)
	assert.Equal(t, [][]string{{"d1/a.txt", "d2/a.txt"}}, clusterSets(t, base, report.Clusters))
	assert.Equal(t, int64(100), report.Stats.DuplicatedBytes)
	assert.Equal(t, int64(100), report.Stats.DuplicatedByExt["txt"])
	assert.Equal(t, 4, report.Stats.FilesScanned)
	assert.Equal(t, int64(400), report.Stats.BytesScanned)
	assert.Equal(t, 4, report.Stats.SizeCandidates)
	assert.Equal(t, 2, report.Stats.FingerprintCandidates, "b.txt pair differs within the window")
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Clusters[0].Digest, 64)
}

func TestCommonPrefixDifferentSizeNeverGrouped(t *testing.T) {
	base := tempDir(t)
	large := bytes.Repeat([]byte("abc"), 8000/3+1)[:8000]
	writeTree(t, base, map[string][]byte{
		"short.bin": []byte("abc"),
		"long.bin":  large,
	})

	report, err := realHarness(t).run(t, context.Background(), base)
	require.NoError(t, err)

	assert.Empty(t, report.Clusters)
	assert.Zero(t, report.Stats.SizeCandidates)
	assert.Zero(t, report.Stats.FingerprintBytesRead, "no file should be read when sizes differ")
}

func TestZeroByteFilesExcluded(t *testing.T) {
	base := tempDir(t)
	writeTree(t, base, map[string][]byte{
		"empty1":    {},
		"empty2":    {},
		"sub/empty": {},
	})

	report, err := realHarness(t).run(t, context.Background(), base)
	require.NoError(t, err)

	assert.Empty(t, report.Clusters)
	assert.Zero(t, report.Stats.FilesScanned)
}

func TestSamePrefixDifferentTail(t *testing.T) {
	base := tempDir(t)
	prefix := bytes.Repeat([]byte{7}, models.DefaultFingerprintWindow)
	writeTree(t, base, map[string][]byte{
		"a": append(append([]byte{}, prefix...), []byte("tail-1")...),
		"b": append(append([]byte{}, prefix...), []byte("tail-2")...),
		"c": append(append([]byte{}, prefix...), []byte("tail-1")...),
	})

	report, err := realHarness(t).run(t, context.Background(), base)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Stats.FingerprintCandidates)
	assert.Equal(t, [][]string{{"a", "c"}}, clusterSets(t, base, report.Clusters))
}

// TestClusterProperties generates a tree with known content groups and checks
// every cluster against the ground truth
func TestClusterProperties(t *testing.T) {
	base := tempDir(t)
	files := make(map[string][]byte)
	byContent := make(map[string][]string)

	for i := 0; i < 60; i++ {
		// 20 distinct contents, some sharing sizes, some sharing the window
		group := i % 20
		var data []byte
		switch {
		case group < 5:
			data = []byte(fmt.Sprintf("small-%02d", group))
		case group < 10:
			data = append(bytes.Repeat([]byte{1}, models.DefaultFingerprintWindow), byte(group))
		default:
			data = bytes.Repeat([]byte{byte(group)}, 10_000+group)
		}
		if i >= 40 && group%3 == 0 {
			// Unique file
			data = append([]byte(fmt.Sprintf("unique-%d-", i)), data...)
		}

		name := fmt.Sprintf("dir%d/file%02d.dat", i%4, i)
		files[name] = data
		byContent[string(data)] = append(byContent[string(data)], name)
	}
	writeTree(t, base, files)

	var expected [][]string
	for _, names := range byContent {
		if len(names) >= 2 {
			sort.Strings(names)
			expected = append(expected, names)
		}
	}
	sort.Slice(expected, func(i, j int) bool { return expected[i][0] < expected[j][0] })

	report, err := realHarness(t).run(t, context.Background(), base)
	require.NoError(t, err)

	// Completeness and soundness
	assert.Equal(t, expected, clusterSets(t, base, report.Clusters))

	seen := make(map[string]bool)
	for _, cluster := range report.Clusters {
		require.GreaterOrEqual(t, len(cluster.Paths), 2)

		first, err := os.ReadFile(cluster.Paths[0])
		require.NoError(t, err)
		for _, path := range cluster.Paths {
			assert.False(t, seen[path], "path %s in more than one cluster", path)
			seen[path] = true

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, cluster.Size, info.Size())

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, first, data)
		}
	}

	// Idempotence
	again, err := realHarness(t).run(t, context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, report.Clusters, again.Clusters)
}

func TestForcedFingerprintCollision(t *testing.T) {
	base := tempDir(t)
	writeTree(t, base, map[string][]byte{
		"a": []byte("1111"),
		"b": []byte("2222"),
		"c": []byte("1111"),
		"d": []byte("2222"),
	})

	h := realHarness(t)
	h.fingerprinter = constantFingerprinter{}

	report, err := h.run(t, context.Background(), base)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Stats.FingerprintCandidates)
	assert.Equal(t, [][]string{{"a", "c"}, {"b", "d"}}, clusterSets(t, base, report.Clusters))
}

type constantFingerprinter struct{}

func (constantFingerprinter) Fingerprint(context.Context, string) (uint64, error) {
	return 42, nil
}

// failingDigester fails for paths with the given base name
type failingDigester struct {
	Digester
	name string
}

func (f failingDigester) Digest(ctx context.Context, path string) (string, error) {
	if filepath.Base(path) == f.name {
		return "", errors.New("input/output error")
	}
	return f.Digester.Digest(ctx, path)
}

func TestUnreadableFileDropped(t *testing.T) {
	base := tempDir(t)
	writeTree(t, base, map[string][]byte{
		"a": []byte("same"),
		"b": []byte("same"),
		"c": []byte("same"),
	})

	h := realHarness(t)
	h.digester = failingDigester{Digester: h.digester, name: "b"}

	report, err := h.run(t, context.Background(), base)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPartial, report.Status)
	assert.Equal(t, 1, report.Status.ExitCode())
	assert.Equal(t, [][]string{{"a", "c"}}, clusterSets(t, base, report.Clusters))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, models.StageConfirm, report.Errors[0].Stage)
	assert.Equal(t, filepath.Join(base, "b"), report.Errors[0].FilePath)
}

func TestUnreadableFileDroppedDuringFingerprint(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}

	base := tempDir(t)
	writeTree(t, base, map[string][]byte{
		"a":      []byte("same"),
		"b":      []byte("same"),
		"locked": []byte("same"),
	})
	locked := filepath.Join(base, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	defer os.Chmod(locked, 0644)

	report, err := realHarness(t).run(t, context.Background(), base)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPartial, report.Status)
	assert.Equal(t, [][]string{{"a", "b"}}, clusterSets(t, base, report.Clusters))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, models.StageFingerprint, report.Errors[0].Stage)
}

func TestCancelledScan(t *testing.T) {
	base := tempDir(t)
	writeTree(t, base, map[string][]byte{"a": []byte("x"), "b": []byte("x")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := realHarness(t).run(t, ctx, base)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.Equal(t, 3, report.Status.ExitCode())
}

// cancellingDigester cancels the run on its first call
type cancellingDigester struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (c *cancellingDigester) Digest(ctx context.Context, path string) (string, error) {
	c.once.Do(c.cancel)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCancelledDuringConfirmation(t *testing.T) {
	base := tempDir(t)
	writeTree(t, base, map[string][]byte{"a": []byte("same"), "b": []byte("same")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := realHarness(t)
	h.digester = &cancellingDigester{cancel: cancel}

	report, err := h.run(t, ctx, base)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.Empty(t, report.Errors, "cancellation is not a per-file error")
}

func TestCancelledStageIsFinished(t *testing.T) {
	base := tempDir(t)
	writeTree(t, base, map[string][]byte{"a": []byte("same"), "b": []byte("same")})

	t.Run("Enumerate", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		h := realHarness(t)
		observer := newRecordingObserver()
		pipeline := NewPipeline(sources(t, base), h.fingerprinter, h.digester, observer, nil, PipelineConfig{MaxWorkers: 2})

		_, err := pipeline.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []models.Stage{models.StageEnumerate}, observer.started)
		assert.Contains(t, observer.done, models.StageEnumerate)
	})

	t.Run("Confirm", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		h := realHarness(t)
		observer := newRecordingObserver()
		pipeline := NewPipeline(sources(t, base), h.fingerprinter, &cancellingDigester{cancel: cancel}, observer, nil, PipelineConfig{MaxWorkers: 2})

		_, err := pipeline.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, models.Stages, observer.started)
		for _, stage := range models.Stages {
			assert.Contains(t, observer.done, stage, "stage %s left open", stage)
		}
	})
}

func TestOverlappingRoots(t *testing.T) {
	base := tempDir(t)
	writeTree(t, base, map[string][]byte{
		"sub/a": []byte("same"),
		"sub/b": []byte("same"),
	})

	report, err := realHarness(t).run(t, context.Background(), base, filepath.Join(base, "sub"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Stats.FilesScanned)
	assert.Equal(t, [][]string{{"sub/a", "sub/b"}}, clusterSets(t, base, report.Clusters))
}

func TestSymlinkedRootCountedOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}

	base := tempDir(t)
	writeTree(t, base, map[string][]byte{"real/only.bin": []byte("one file")})
	require.NoError(t, os.Symlink(filepath.Join(base, "real"), filepath.Join(base, "link")))

	report, err := realHarness(t).run(t, context.Background(),
		filepath.Join(base, "real"), filepath.Join(base, "link"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stats.FilesScanned)
	assert.Empty(t, report.Clusters)
}

func TestSymlinksNotFollowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}

	base := tempDir(t)
	writeTree(t, base, map[string][]byte{"real": []byte("content")})
	require.NoError(t, os.Symlink(filepath.Join(base, "real"), filepath.Join(base, "alias")))

	report, err := realHarness(t).run(t, context.Background(), base)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stats.FilesScanned)
	assert.Empty(t, report.Clusters)
}

// recordingObserver records stage transitions
type recordingObserver struct {
	mu       sync.Mutex
	started  []models.Stage
	advanced map[models.Stage]int
	done     map[models.Stage]int
	found    int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{advanced: map[models.Stage]int{}, done: map[models.Stage]int{}}
}

func (o *recordingObserver) StageStart(stage models.Stage, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, stage)
}

func (o *recordingObserver) StageAdvance(stage models.Stage, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.advanced[stage] += n
}

func (o *recordingObserver) StageDone(stage models.Stage, survivors int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done[stage] = survivors
}

func (o *recordingObserver) FileFound(path string, size int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.found++
}

func TestObserverNotified(t *testing.T) {
	base := tempDir(t)
	writeTree(t, base, map[string][]byte{
		"a":      []byte("dup"),
		"b":      []byte("dup"),
		"c":      []byte("xyz"),
		"single": []byte(strings.Repeat("s", 50)),
	})

	h := realHarness(t)
	observer := newRecordingObserver()
	pipeline := NewPipeline(sources(t, base), h.fingerprinter, h.digester, observer, nil, PipelineConfig{MaxWorkers: 2})

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Clusters, 1)

	assert.Equal(t, models.Stages, observer.started)
	assert.Equal(t, 4, observer.found)
	assert.Equal(t, 3, observer.done[models.StageSize])
	assert.Equal(t, 1, observer.advanced[models.StageFingerprint], "one task per size bucket")
	assert.Equal(t, 2, observer.done[models.StageFingerprint])
	assert.Equal(t, 2, observer.advanced[models.StageConfirm], "one task per file")
	assert.Equal(t, 2, observer.done[models.StageConfirm])
}

func TestEngineRejectsInvalidOperation(t *testing.T) {
	op := newOperation()
	engine := NewEngine(nil, constantFingerprinter{}, mapDigester{}, nil, nil, op)

	_, err := engine.Run(context.Background())

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "Roots", validationErr.Field)
}
