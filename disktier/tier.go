package disktier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/voltcache/corecache/cacheerr"
	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/eviction"
	"github.com/voltcache/corecache/evictreason"
	"github.com/voltcache/corecache/internal/util"
	"github.com/voltcache/corecache/stats"
)

const fileSuffix = ".cache"

// tierImpl is the concrete disk tier (spec §4.5, component C5): a
// content-addressed file store ("<hex(sha256(key))>.cache") with an
// in-memory index and a bounded-concurrency IO gate.
type tierImpl[K comparable, V any] struct {
	opt Options[K, V]

	idxMu sync.Mutex
	index map[K]*indexEntry[K]

	// ioGate bounds simultaneous disk operations to opt.MaxConcurrentIO
	// in-flight slots at once (spec §4.5), implemented as a buffered
	// channel token pool, the idiomatic stdlib counting semaphore.
	ioGate chan struct{}

	st            stats.Statistics
	orphanedBytes atomic.Int64
	disposed      atomic.Bool

	compactStop chan struct{}
	compactDone chan struct{}
}

// Open scans directory for existing "<file_id>.cache" files, seeds the
// in-memory index from opt.RestoreIndex (if provided, validated against the
// files actually present), and starts the compaction timer. Per spec §9
// open question #1, without a RestoreIndex the tier only recomputes the
// aggregate orphaned-byte total; it cannot reconstruct keys from file names
// because the mapping is one-way.
func Open[K comparable, V any](opt Options[K, V]) (Tier[K, V], error) {
	if opt.Name == "" {
		return nil, cacheerr.InvalidConfig("disktier.Open", "Name must be non-empty")
	}
	if opt.Directory == "" {
		return nil, cacheerr.InvalidConfig("disktier.Open", "Directory must be non-empty")
	}
	if opt.Codec == nil {
		return nil, cacheerr.InvalidConfig("disktier.Open", "Codec must be set")
	}
	opt.setDefaults()

	if err := os.MkdirAll(opt.Directory, 0o755); err != nil {
		return nil, err
	}

	t := &tierImpl[K, V]{
		opt:         opt,
		index:       make(map[K]*indexEntry[K]),
		ioGate:      make(chan struct{}, opt.MaxConcurrentIO),
		compactStop: make(chan struct{}),
		compactDone: make(chan struct{}),
	}

	onDisk, err := t.scanDirectory()
	if err != nil {
		return nil, err
	}

	restored := make(map[string]bool, len(opt.RestoreIndex))
	now := nowNanos(opt.Clock)
	for _, snap := range opt.RestoreIndex {
		if _, ok := onDisk[snap.FileID]; !ok {
			continue // file no longer present; drop the stale snapshot entry
		}
		e := newIndexEntry[K](snap.Key, snap.FileID, snap.SizeBytes, snap.TTL, snap.Priority, now, opt.Clock)
		t.index[snap.Key] = e
		t.st.RecordEntryAdded(snap.SizeBytes)
		restored[snap.FileID] = true
	}
	var orphaned int64
	for fileID, size := range onDisk {
		if !restored[fileID] {
			orphaned += size
		}
	}
	t.orphanedBytes.Store(orphaned)

	go t.compactionLoop()
	return t, nil
}

func (t *tierImpl[K, V]) scanDirectory() (map[string]int64, error) {
	entries, err := os.ReadDir(t.opt.Directory)
	if err != nil {
		return nil, err
	}
	sizes := make(map[string]int64, len(entries))
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if filepath.Ext(name) != fileSuffix {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		fileID := name[:len(name)-len(fileSuffix)]
		sizes[fileID] = info.Size()
	}
	return sizes, nil
}

func nowNanos(clock entry.Clock) int64 {
	if clock == nil {
		return time.Now().UnixNano()
	}
	return clock.NowUnixNano()
}

func (t *tierImpl[K, V]) fileID(key K) string {
	sum := sha256.Sum256([]byte(util.KeyString(key)))
	return hex.EncodeToString(sum[:])
}

func (t *tierImpl[K, V]) filePath(fileID string) string {
	return filepath.Join(t.opt.Directory, fileID+fileSuffix)
}

func (t *tierImpl[K, V]) acquire(ctx context.Context) error {
	select {
	case t.ioGate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *tierImpl[K, V]) release() { <-t.ioGate }

// ---- reads ----

func (t *tierImpl[K, V]) Get(key K) (V, bool, error) {
	return t.getCtx(context.Background(), key)
}

func (t *tierImpl[K, V]) GetAsync(ctx context.Context, key K) (V, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero V
		return zero, false, err
	}
	return t.getCtx(ctx, key)
}

func (t *tierImpl[K, V]) getCtx(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if t.disposed.Load() {
		return zero, false, cacheerr.Disposed(t.opt.Name)
	}
	start := time.Now()

	t.idxMu.Lock()
	idx, ok := t.index[key]
	t.idxMu.Unlock()
	if !ok {
		t.st.RecordMiss(time.Since(start))
		return zero, false, nil
	}
	if idx.IsExpired() {
		t.removeIndexed(key, idx, evictreason.TTL, true)
		t.st.RecordMiss(time.Since(start))
		return zero, false, nil
	}

	if err := t.acquire(ctx); err != nil {
		return zero, false, err
	}
	raw, err := os.ReadFile(t.filePath(idx.fileID))
	t.release()
	if err != nil {
		// Tier corruption (spec §7 kind 3): index said the file exists but
		// it doesn't (or isn't readable). Evict the index entry, return miss.
		t.removeIndexed(key, idx, evictreason.Capacity, false)
		t.st.RecordMiss(time.Since(start))
		return zero, false, nil
	}

	if t.opt.EnableCompression {
		raw, err = gunzip(raw)
		if err != nil {
			t.removeIndexed(key, idx, evictreason.Capacity, false)
			t.st.RecordMiss(time.Since(start))
			return zero, false, nil
		}
	}
	v, err := t.opt.Codec.Deserialize(raw)
	if err != nil {
		t.removeIndexed(key, idx, evictreason.Capacity, false)
		t.st.RecordMiss(time.Since(start))
		return zero, false, nil
	}

	idx.touch(nowNanos(t.opt.Clock))
	t.opt.Policy.OnAccess(idx)
	t.st.RecordHit(time.Since(start))
	return v, true, nil
}

// ---- writes ----

func (t *tierImpl[K, V]) Put(key K, value V) error {
	return t.putCtx(context.Background(), key, value, 0, entry.Normal)
}

func (t *tierImpl[K, V]) PutWithOptions(key K, value V, ttl time.Duration, priority entry.Priority) error {
	return t.putCtx(context.Background(), key, value, ttl, priority)
}

func (t *tierImpl[K, V]) PutAsync(ctx context.Context, key K, value V) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.putCtx(ctx, key, value, 0, entry.Normal)
}

func (t *tierImpl[K, V]) putCtx(ctx context.Context, key K, value V, ttl time.Duration, priority entry.Priority) error {
	if t.disposed.Load() {
		return cacheerr.Disposed(t.opt.Name)
	}
	raw, err := t.opt.Codec.Serialize(value)
	if err != nil {
		return err
	}
	if t.opt.EnableCompression {
		raw, err = gzipBytes(raw, t.opt.CompressionLevel)
		if err != nil {
			return err
		}
	}

	fileID := t.fileID(key)
	if err := t.acquire(ctx); err != nil {
		return err
	}
	err = os.WriteFile(t.filePath(fileID), raw, 0o644)
	t.release()
	if err != nil {
		return err
	}

	now := nowNanos(t.opt.Clock)
	newEntry := newIndexEntry[K](key, fileID, int64(len(raw)), ttl, priority, now, t.opt.Clock)

	t.idxMu.Lock()
	old, existed := t.index[key]
	t.index[key] = newEntry
	t.idxMu.Unlock()

	if existed {
		t.st.AdjustSize(newEntry.SizeBytes() - old.SizeBytes())
	} else {
		t.st.RecordEntryAdded(newEntry.SizeBytes())
	}
	t.opt.Policy.OnAdd(newEntry)
	t.checkAndEvict()
	return nil
}

// ---- removal ----

func (t *tierImpl[K, V]) Remove(key K) (bool, error) {
	if t.disposed.Load() {
		return false, cacheerr.Disposed(t.opt.Name)
	}
	t.idxMu.Lock()
	idx, ok := t.index[key]
	if ok {
		delete(t.index, key)
	}
	t.idxMu.Unlock()
	if !ok {
		return false, nil
	}
	t.opt.Policy.OnRemove(idx)
	t.st.RecordEntryRemoved(idx.SizeBytes())
	_ = os.Remove(t.filePath(idx.fileID))
	return true, nil
}

// removeIndexed drops idx from the index and deletes its backing file.
// reason selects which statistic bucket absorbs the removal; deleteFile
// controls whether the backing file is unlinked (false when the read path
// already knows the file can't be read).
func (t *tierImpl[K, V]) removeIndexed(key K, idx *indexEntry[K], reason evictreason.Reason, deleteFile bool) {
	t.idxMu.Lock()
	cur, ok := t.index[key]
	if ok && cur == idx {
		delete(t.index, key)
	} else {
		ok = false
	}
	t.idxMu.Unlock()
	if !ok {
		return
	}
	t.opt.Policy.OnRemove(idx)
	t.st.RecordEntryRemoved(idx.SizeBytes())
	if reason == evictreason.TTL {
		t.st.RecordExpired(1)
	}
	if deleteFile {
		_ = os.Remove(t.filePath(idx.fileID))
	}
}

// ---- introspection ----

func (t *tierImpl[K, V]) ContainsKey(key K) bool {
	t.idxMu.Lock()
	idx, ok := t.index[key]
	t.idxMu.Unlock()
	if !ok {
		return false
	}
	if idx.IsExpired() {
		t.removeIndexed(key, idx, evictreason.TTL, true)
		return false
	}
	return true
}

func (t *tierImpl[K, V]) Keys() []K {
	t.idxMu.Lock()
	defer t.idxMu.Unlock()
	keys := make([]K, 0, len(t.index))
	for k := range t.index {
		keys = append(keys, k)
	}
	return keys
}

func (t *tierImpl[K, V]) GetEntryMetadata(key K) (entry.Metadata, bool) {
	t.idxMu.Lock()
	idx, ok := t.index[key]
	t.idxMu.Unlock()
	if !ok {
		return entry.Metadata{}, false
	}
	return idx.metadata(), true
}

func (t *tierImpl[K, V]) IndexSnapshot() []IndexSnapshot[K] {
	t.idxMu.Lock()
	defer t.idxMu.Unlock()
	out := make([]IndexSnapshot[K], 0, len(t.index))
	for _, idx := range t.index {
		out = append(out, idx.snapshot())
	}
	return out
}

func (t *tierImpl[K, V]) Name() string          { return t.opt.Name }
func (t *tierImpl[K, V]) Count() int            { return int(t.st.CurrentCount()) }
func (t *tierImpl[K, V]) SizeBytes() int64      { return t.st.CurrentSizeBytes() }
func (t *tierImpl[K, V]) OrphanedBytes() int64  { return t.orphanedBytes.Load() }
func (t *tierImpl[K, V]) Statistics() stats.Snapshot { return t.st.Snapshot() }

// ---- bulk mutation ----

func (t *tierImpl[K, V]) Clear() error {
	t.idxMu.Lock()
	t.index = make(map[K]*indexEntry[K])
	t.idxMu.Unlock()
	t.st.UpdateCurrent(0, 0)
	t.orphanedBytes.Store(0)

	// Per spec §4.5 "Clear: delete all files, zero size" — this wipes the
	// directory wholesale, reclaiming orphaned files a restart could never
	// see (spec §9 open question #1).
	entries, err := os.ReadDir(t.opt.Directory)
	if err != nil {
		return err
	}
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != fileSuffix {
			continue
		}
		_ = os.Remove(filepath.Join(t.opt.Directory, de.Name()))
	}
	return nil
}

func (t *tierImpl[K, V]) ClearExpired() (int, error) {
	t.idxMu.Lock()
	candidates := make([]K, 0, len(t.index))
	for k, idx := range t.index {
		if idx.IsExpired() {
			candidates = append(candidates, k)
		}
	}
	t.idxMu.Unlock()

	n := 0
	for _, k := range candidates {
		t.idxMu.Lock()
		idx, ok := t.index[k]
		t.idxMu.Unlock()
		if !ok || !idx.IsExpired() {
			continue
		}
		t.removeIndexed(k, idx, evictreason.TTL, true)
		n++
	}
	return n, nil
}

// Evict forces an eviction pass that frees at least targetBytes.
func (t *tierImpl[K, V]) Evict(targetBytes int64) (int, error) {
	if targetBytes <= 0 {
		return 0, nil
	}
	return t.runEvictionPass(0, targetBytes), nil
}

func (t *tierImpl[K, V]) checkAndEvict() {
	over := t.st.CurrentCount() > int64(t.opt.MaxEntryCount) || t.st.CurrentSizeBytes() > t.opt.MaxSizeBytes
	if !over {
		return
	}
	targetCountLevel := int64(float64(t.opt.MaxEntryCount) * t.opt.EvictionTarget)
	targetBytesLevel := int64(float64(t.opt.MaxSizeBytes) * t.opt.EvictionTarget)
	excessCount := t.st.CurrentCount() - targetCountLevel
	excessBytes := t.st.CurrentSizeBytes() - targetBytesLevel
	if excessCount < 0 {
		excessCount = 0
	}
	if excessBytes < 0 {
		excessBytes = 0
	}
	t.runEvictionPass(int(excessCount), excessBytes)
}

func (t *tierImpl[K, V]) runEvictionPass(targetCount int, targetBytes int64) int {
	t.idxMu.Lock()
	candidates := make([]eviction.Candidate[K], 0, len(t.index))
	for _, idx := range t.index {
		candidates = append(candidates, idx)
	}
	t.idxMu.Unlock()

	victims := t.opt.Policy.SelectForEviction(candidates, targetCount, targetBytes)
	removed := 0
	for _, v := range victims {
		key := v.Key()
		t.idxMu.Lock()
		idx, ok := t.index[key]
		if ok {
			delete(t.index, key)
		}
		t.idxMu.Unlock()
		if !ok {
			continue
		}
		t.opt.Policy.OnRemove(idx)
		t.st.RecordEntryRemoved(idx.SizeBytes())
		t.st.RecordEviction(1)
		_ = os.Remove(t.filePath(idx.fileID))
		removed++
	}
	return removed
}

// ---- lifecycle ----

func (t *tierImpl[K, V]) compactionLoop() {
	defer close(t.compactDone)
	ticker := time.NewTicker(t.opt.CompactionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, _ = t.ClearExpired()
		case <-t.compactStop:
			return
		}
	}
}

func (t *tierImpl[K, V]) Dispose() error {
	if !t.disposed.CompareAndSwap(false, true) {
		return nil
	}
	close(t.compactStop)
	<-t.compactDone
	// Drop the in-memory index only: the files stay on disk so a later Open
	// can restore them via Options.RestoreIndex or count them as orphaned.
	t.idxMu.Lock()
	t.index = make(map[K]*indexEntry[K])
	t.idxMu.Unlock()
	t.st.UpdateCurrent(0, 0)
	return nil
}

// ---- gzip helpers ----

func gzipBytes(raw []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(raw []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
