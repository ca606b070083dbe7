package extract

// Filter decides which entities to keep based on their own tags.
//
// Comparison is case-sensitive and exact. A filter matches when the
// entity carries the key and, if values were given, the tag value is one
// of them. Ways and relations are judged by their tags alone; the tags of
// their member nodes play no part.
//
// Example:
//
//	// Every entity tagged amenity, whatever the value.
//	extract.MatchKey("amenity")
//
//	// Cafes only.
//	extract.MatchKeyValue("amenity", "cafe")
//
//	// Cafes and restaurants.
//	extract.MatchKeyValues("amenity", "cafe", "restaurant")
type Filter struct {
	key    string
	values map[string]struct{} // nil matches any value
}

// MatchKey returns a filter keeping entities that carry the key,
// regardless of its value.
func MatchKey(key string) *Filter {
	return &Filter{key: key}
}

// MatchKeyValue returns a filter keeping entities whose tag for key
// equals value exactly.
func MatchKeyValue(key, value string) *Filter {
	return MatchKeyValues(key, value)
}

// MatchKeyValues returns a filter keeping entities whose tag for key
// equals any one of the given values.
func MatchKeyValues(key string, values ...string) *Filter {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return &Filter{key: key, values: set}
}

// Matches reports whether a tag map satisfies the filter.
func (f *Filter) Matches(tags map[string]string) bool {
	v, ok := tags[f.key]
	if !ok {
		return false
	}
	if f.values == nil {
		return true
	}
	_, ok = f.values[v]
	return ok
}
