package normalize

import (
	"encoding/json"
	"strings"
)

// Known top-level keys per source: everything else in a payload is copied
// verbatim into the review's Metadata so normalization never discards
// information.

var hostawayKnown = knownSet(
	"id", "listingMapId", "listingName", "type", "status", "rating",
	"reviewCategory", "guestName", "publicReview", "submittedAt", "channelName",
)

var placesKnown = knownSet(
	"author_name", "author_url", "language", "rating", "text", "time",
	"relative_time_description", "profile_photo_url",
)

var businessKnown = knownSet(
	"reviewId", "reviewerDisplayName", "starRating", "comment",
	"createTime", "updateTime", "replyComment", "reviewer", "reviewReply", "name",
)

func knownSet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// ExtraFields returns the top-level fields of raw that are not promoted to
// canonical columns for the given source.
func ExtraFields(raw json.RawMessage, known map[string]struct{}) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	extras := make(map[string]any, 4)
	for k, v := range m {
		if _, ok := known[k]; ok {
			continue
		}
		extras[k] = v
	}
	if len(extras) == 0 {
		return nil
	}
	return extras
}

func HostawayExtras(raw json.RawMessage) map[string]any { return ExtraFields(raw, hostawayKnown) }
func PlacesExtras(raw json.RawMessage) map[string]any   { return ExtraFields(raw, placesKnown) }
func BusinessExtras(raw json.RawMessage) map[string]any { return ExtraFields(raw, businessKnown) }

// LookupAny walks a dot path through nested maps; used when providers move a
// field between payload versions.
func LookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// LookupStr returns the string at path or "".
func LookupStr(m map[string]any, path string) string {
	if v := LookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
