package metadata

import "sort"

// TagCount is one entry of the tag registry: a tag and the number of
// documents carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// AllTags aggregates the tag registry from the current records: tag to
// usage count, ordered by descending count then tag name. The registry
// is derived on demand and never independently persisted.
func (s *Store) AllTags() []TagCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, rec := range s.data.Documents {
		for _, tag := range rec.Tags {
			counts[tag]++
		}
	}

	tags := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		tags = append(tags, TagCount{Tag: tag, Count: n})
	}

	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})

	return tags
}
