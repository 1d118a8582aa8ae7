package github

import lru "github.com/hashicorp/golang-lru/v2"

const defaultETagEntries = 256

type etagEntry struct {
	etag string
	body []byte
}

// etagCache remembers the last ETag and body per GET URL so repeated polls
// of an unchanged pull request are answered with 304 Not Modified. The LRU
// bound keeps a long-lived agent from growing without limit as pull
// requests come and go.
type etagCache struct {
	entries *lru.Cache[string, etagEntry]
}

func newETagCache(size int) (*etagCache, error) {
	entries, err := lru.New[string, etagEntry](size)
	if err != nil {
		return nil, err
	}
	return &etagCache{entries: entries}, nil
}

func (c *etagCache) etag(url string) string {
	entry, ok := c.entries.Get(url)
	if !ok {
		return ""
	}
	return entry.etag
}

func (c *etagCache) body(url string) []byte {
	entry, ok := c.entries.Get(url)
	if !ok {
		return nil
	}
	return entry.body
}

func (c *etagCache) put(url, etag string, body []byte) {
	if etag == "" {
		return
	}
	c.entries.Add(url, etagEntry{etag: etag, body: body})
}
