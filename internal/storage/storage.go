// Package storage is the emulated blob service. Uploaded bytes are encoded as
// data URLs and kept in the backing blobs slot, keyed by storage path, so a
// download URL is the stored content itself.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"

	"boardhouse/internal/backing"
	"boardhouse/internal/platform"
	"boardhouse/internal/tree"
)

// DefaultCacheSize bounds the decoded-content cache used by Open.
const DefaultCacheSize = 64

// Record is one stored blob.
type Record struct {
	Path      string `json:"-"`
	Content   string `json:"content"`
	MediaType string `json:"mediaType"`
	WrittenAt int64  `json:"writtenAt"`
}

// Ref names a storage path.
type Ref struct {
	path string
}

// Path returns the normalized storage path.
func (r Ref) Path() string { return r.path }

// Name returns the final path segment.
func (r Ref) Name() string {
	n, _ := tree.LastSegment(r.path)
	return n
}

// Child returns the ref for path below r.
func (r Ref) Child(path string) Ref { return Ref{path: tree.Join(r.path, path)} }

func (r Ref) String() string { return r.path }

// PutOptions describe an upload. An empty MediaType is detected from the
// content.
type PutOptions struct {
	MediaType string
}

type cached struct {
	content string
	data    []byte
}

// Store is the blob service.
type Store struct {
	mu    sync.Mutex
	slots *backing.Slots
	cache *lru.Cache[string, cached]
	in    platform.Instruments
}

// New returns a store over the blobs slot of slots.
func New(slots *backing.Slots, opts ...platform.Option) (*Store, error) {
	cache, err := lru.New[string, cached](DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("blob cache: %w", err)
	}
	return &Store{slots: slots, cache: cache, in: platform.NewInstruments(opts...)}, nil
}

// Ref returns a ref to path.
func (s *Store) Ref(path string) Ref { return Ref{path: tree.Join(path)} }

func (s *Store) load(ctx context.Context) map[string]Record {
	records := make(map[string]Record)
	if !s.slots.Load(ctx, backing.SlotBlobs, &records) {
		return make(map[string]Record)
	}
	return records
}

// Put reads r in the background and stores it at ref, replacing any earlier
// content. The returned Upload completes once the record is saved.
func (s *Store) Put(ctx context.Context, ref Ref, r io.Reader, opts PutOptions) *Upload {
	u := newUpload()
	go func() {
		var rec Record
		err := s.in.Run(ctx, "storage.put", func(ctx context.Context) error {
			if ref.path == "" {
				return errors.New("storage: empty path")
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read upload %s: %w", ref, err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			rec = s.save(ctx, ref, data, opts.MediaType)
			return nil
		})
		u.finish(rec, err)
	}()
	return u
}

func (s *Store) save(ctx context.Context, ref Ref, data []byte, mediaType string) Record {
	if mediaType == "" {
		mediaType, _, _ = strings.Cut(mimetype.Detect(data).String(), ";")
	}
	rec := Record{
		Path:      ref.path,
		Content:   EncodeDataURL(mediaType, data),
		MediaType: mediaType,
		WrittenAt: s.in.Clock.Now().UnixMilli(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.load(ctx)
	records[ref.path] = rec
	s.slots.Save(ctx, backing.SlotBlobs, records)
	s.cache.Remove(ref.path)
	s.in.Logger.Debug("blob stored", "path", ref.path, "media_type", mediaType, "bytes", len(data))
	return rec
}

// GetURL returns the stored data URL for ref, or "" when nothing is stored.
func (s *Store) GetURL(ctx context.Context, ref Ref) string {
	rec, ok := s.Stat(ctx, ref)
	if !ok {
		return ""
	}
	return rec.Content
}

// Stat returns the record stored at ref.
func (s *Store) Stat(ctx context.Context, ref Ref) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.load(ctx)[ref.path]
	if !ok {
		return Record{}, false
	}
	rec.Path = ref.path
	return rec, true
}

// Open returns the decoded bytes stored at ref. Recently decoded content is
// served from a bounded cache.
func (s *Store) Open(ctx context.Context, ref Ref) ([]byte, Record, bool) {
	rec, ok := s.Stat(ctx, ref)
	if !ok {
		return nil, Record{}, false
	}
	if c, hit := s.cache.Get(ref.path); hit && c.content == rec.Content {
		return append([]byte(nil), c.data...), rec, true
	}
	_, data, err := DecodeDataURL(rec.Content)
	if err != nil {
		s.in.Logger.Warn("blob content undecodable", "path", ref.path, "error", err)
		return nil, Record{}, false
	}
	s.cache.Add(ref.path, cached{content: rec.Content, data: data})
	return append([]byte(nil), data...), rec, true
}

// Delete removes the record at ref and reports whether one existed.
func (s *Store) Delete(ctx context.Context, ref Ref) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.load(ctx)
	if _, ok := records[ref.path]; !ok {
		return false
	}
	delete(records, ref.path)
	s.slots.Save(ctx, backing.SlotBlobs, records)
	s.cache.Remove(ref.path)
	return true
}

// List returns the records whose path lies under prefix, ordered by path.
func (s *Store) List(ctx context.Context, prefix string) []Record {
	s.mu.Lock()
	records := s.load(ctx)
	s.mu.Unlock()
	out := make([]Record, 0, len(records))
	for p, rec := range records {
		if !tree.IsPrefix(prefix, p) {
			continue
		}
		rec.Path = p
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// EncodeDataURL renders data as a base64 data URL.
func EncodeDataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a base64 data URL produced by EncodeDataURL.
func DecodeDataURL(u string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return "", nil, errors.New("storage: not a data url")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("storage: data url missing payload")
	}
	mediaType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, errors.New("storage: data url is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("storage: decode payload: %w", err)
	}
	return mediaType, data, nil
}
