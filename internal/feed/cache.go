package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"
)

var (
	bucketFeed = []byte("feed")

	keyRaw       = []byte("raw")
	keyFetchedAt = []byte("fetched_at")
	keyURL       = []byte("url")
)

// ErrCacheEmpty is returned by Latest before anything has been stored.
var ErrCacheEmpty = errors.New("feed cache is empty")

// CachedFeed is the last raw feed stored in the cache.
type CachedFeed struct {
	Raw       []byte
	FetchedAt time.Time
	URL       string
}

// Cache persists the last successfully fetched feed in a bbolt database,
// compressed with zstd.
type Cache struct {
	db  *bbolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// OpenCache opens or creates the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open feed cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFeed)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create feed bucket: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Cache{db: db, enc: enc, dec: dec}, nil
}

// Put replaces the cached feed.
func (c *Cache) Put(raw []byte, fetchedAt time.Time, url string) error {
	compressed := c.enc.EncodeAll(raw, nil)
	stamp, err := fetchedAt.UTC().MarshalText()
	if err != nil {
		return fmt.Errorf("encode fetch time: %w", err)
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFeed)
		if err := b.Put(keyRaw, compressed); err != nil {
			return err
		}
		if err := b.Put(keyFetchedAt, stamp); err != nil {
			return err
		}
		return b.Put(keyURL, []byte(url))
	})
}

// Latest returns the cached feed, or ErrCacheEmpty.
func (c *Cache) Latest() (CachedFeed, error) {
	var (
		compressed []byte
		out        CachedFeed
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFeed)
		data := b.Get(keyRaw)
		if data == nil {
			return ErrCacheEmpty
		}
		// Values are only valid inside the transaction.
		compressed = append([]byte(nil), data...)
		out.URL = string(b.Get(keyURL))
		if stamp := b.Get(keyFetchedAt); stamp != nil {
			if err := out.FetchedAt.UnmarshalText(stamp); err != nil {
				return fmt.Errorf("decode fetch time: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return CachedFeed{}, err
	}

	out.Raw, err = c.dec.DecodeAll(compressed, nil)
	if err != nil {
		return CachedFeed{}, fmt.Errorf("decompress cached feed: %w", err)
	}
	return out, nil
}

// Close releases the database and codecs.
func (c *Cache) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}
