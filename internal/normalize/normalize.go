// Package normalize turns the provider's schema-less result payloads into profile records.
//
// The provider has shipped several output layouts over time: a bare array of profiles, an
// object wrapping the array under an arbitrary key, and JSON encoded inside a string. Each
// layout is a shape; Profiles matches the payload against the shapes and never fails.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kapu/post-reactors/internal/domain"
)

type shape int

const (
	shapeUnknown shape = iota
	shapeSequence
	shapeMapping
	shapeEncoded
)

// Alias keys in priority order. Append new provider field names here.
var (
	ProfileURLAliases = []string{"profileUrl", "url", "linkedinUrl", "profile", "linkedin"}
	NameAliases       = []string{"name", "fullName"}
	HeadlineAliases   = []string{"headline", "title", "jobTitle", "position"}
)

// maxDecodeDepth bounds how many times a JSON string is unwrapped.
const maxDecodeDepth = 2

// Profiles extracts profile records from raw. It returns an empty, non-nil slice when
// nothing recognizable is found.
func Profiles(raw json.RawMessage) []domain.ProfileRecord {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return []domain.ProfileRecord{}
	}
	items := locateSequence(gjson.ParseBytes(raw), 0)
	return resolveAll(items)
}

func shapeOf(value gjson.Result) shape {
	switch {
	case value.IsArray():
		return shapeSequence
	case value.IsObject():
		return shapeMapping
	case value.Type == gjson.String && LooksEncoded(value.Str):
		return shapeEncoded
	default:
		return shapeUnknown
	}
}

// LooksEncoded reports whether s is a JSON array or object serialized as a string.
func LooksEncoded(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if s[0] != '[' && s[0] != '{' {
		return false
	}
	return gjson.Valid(s)
}

// locateSequence returns the elements of the profile sequence inside value, or nil.
func locateSequence(value gjson.Result, depth int) []gjson.Result {
	switch shapeOf(value) {
	case shapeSequence:
		return value.Array()
	case shapeMapping:
		return sequenceInMapping(value)
	case shapeEncoded:
		if depth >= maxDecodeDepth {
			return nil
		}
		return locateSequence(gjson.Parse(value.Str), depth+1)
	default:
		return nil
	}
}

// sequenceInMapping prefers the first non-empty array value in document order and falls
// back to the first array value of any length.
func sequenceInMapping(value gjson.Result) []gjson.Result {
	var (
		firstNonEmpty []gjson.Result
		firstAny      []gjson.Result
		foundAny      bool
	)
	value.ForEach(func(_, v gjson.Result) bool {
		if !v.IsArray() {
			return true
		}
		elems := v.Array()
		if !foundAny {
			firstAny = elems
			foundAny = true
		}
		if len(elems) > 0 {
			firstNonEmpty = elems
			return false
		}
		return true
	})

	if firstNonEmpty != nil {
		return firstNonEmpty
	}
	if foundAny {
		return firstAny
	}
	return nil
}

func resolveAll(items []gjson.Result) []domain.ProfileRecord {
	records := make([]domain.ProfileRecord, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		record, ok := Resolve(item)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records
}

// Resolve maps one raw profile object onto the canonical fields. ok is false when no
// profile URL alias is present.
func Resolve(item gjson.Result) (record domain.ProfileRecord, ok bool) {
	fields := stringFields(item)

	profileURL := firstString(fields, ProfileURLAliases)
	if profileURL == "" {
		return domain.ProfileRecord{}, false
	}

	return domain.ProfileRecord{
		ProfileURL: profileURL,
		Name:       domain.StringPtr(resolveName(fields)),
		Headline:   domain.StringPtr(firstString(fields, HeadlineAliases)),
	}, true
}

func resolveName(fields map[string]string) string {
	if name := firstString(fields, NameAliases); name != "" {
		return name
	}
	first := fields["firstName"]
	last := fields["lastName"]
	if first != "" && last != "" {
		return first + " " + last
	}
	return first
}

func firstString(fields map[string]string, keys []string) string {
	for _, key := range keys {
		if v := fields[key]; v != "" {
			return v
		}
	}
	return ""
}

// stringFields collects the trimmed top-level string values of an object. Keys are
// matched literally, so provider keys containing dots or wildcards are safe.
func stringFields(item gjson.Result) map[string]string {
	fields := make(map[string]string)
	item.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			return true
		}
		if _, seen := fields[key.Str]; !seen {
			fields[key.Str] = strings.TrimSpace(value.Str)
		}
		return true
	})
	return fields
}
