package store

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
)

// Hash field names of a chunk document.
const (
	fieldChunkID    = "chunk_id"
	fieldVideoID    = "video_id"
	fieldVideoTitle = "video_title"
	fieldSeq        = "seq"
	fieldSnippet    = "snippet"
	fieldStartTime  = "start_time"
	fieldTimecode   = "timecode"
)

// indexSchema lists the indexed attributes and their RediSearch types.
// Other hash fields are stored but not indexed.
var indexSchema = []struct{ name, typ string }{
	{fieldSnippet, "TEXT"},
	{fieldVideoID, "TAG"},
	{fieldStartTime, "NUMERIC"},
}

var returnFields = []string{fieldVideoID, fieldVideoTitle, fieldStartTime, fieldTimecode, fieldSnippet}

func createIndexArgs(index, prefix string) []any {
	args := []any{"FT.CREATE", index, "ON", "HASH", "PREFIX", "1", prefix, "SCHEMA"}
	for _, f := range indexSchema {
		args = append(args, f.name, f.typ)
		if f.typ == "NUMERIC" {
			args = append(args, "SORTABLE")
		}
	}
	return args
}

// SearchRequest is a built FT.SEARCH call.
type SearchRequest struct {
	Index  string
	Query  string
	Limit  int
	Offset int
}

// BuildQuery sanitizes rawQuery and scopes it to the snippet field.
// Non-positive limit defaults to 10; negative offset is treated as 0.
func BuildQuery(index, rawQuery string, limit, offset int) (SearchRequest, error) {
	q, err := SanitizeQuery(rawQuery)
	if err != nil {
		return SearchRequest{}, err
	}
	if limit <= 0 {
		limit = 10
	}
	return SearchRequest{
		Index:  index,
		Query:  "@" + fieldSnippet + ":(" + q + ")",
		Limit:  limit,
		Offset: max(offset, 0),
	}, nil
}

// Args renders the request as FT.SEARCH arguments for redis.Client.Do.
func (r SearchRequest) Args() []any {
	args := []any{"FT.SEARCH", r.Index, r.Query, "RETURN", len(returnFields)}
	for _, f := range returnFields {
		args = append(args, f)
	}
	return append(args, "LIMIT", r.Offset, r.Limit)
}

// ParseResults maps a RESP2 FT.SEARCH reply
//
//	[total, key1, [field, value, ...], key2, [...], ...]
//
// to SearchResults in reply order. The timecode is recomputed from
// start_time whenever start_time is present.
func ParseResults(raw any) ([]engine.SearchResult, error) {
	rows, ok := raw.([]any)
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("unexpected FT.SEARCH reply %T", raw)
	}
	results := make([]engine.SearchResult, 0, (len(rows)-1)/2)
	for i := 1; i+1 < len(rows); i += 2 {
		fields, _ := rows[i+1].([]any)
		m := pairs(fields)
		r := engine.SearchResult{
			VideoID:    m[fieldVideoID],
			VideoTitle: m[fieldVideoTitle],
			Snippet:    m[fieldSnippet],
			Timecode:   m[fieldTimecode],
		}
		if v, ok := m[fieldStartTime]; ok {
			start, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("document %v: bad start_time %q", rows[i], v)
			}
			r.StartTime = start
			r.Timecode = transcripts.FormatTimecode(start)
		}
		results = append(results, r)
	}
	return results, nil
}

// indexInfo is the part of FT.INFO used to validate an existing index.
type indexInfo struct {
	prefixes   []string
	attributes map[string]string // identifier → type
	numDocs    int64
}

func parseIndexInfo(raw any) (indexInfo, error) {
	top, ok := raw.([]any)
	if !ok {
		return indexInfo{}, fmt.Errorf("unexpected FT.INFO reply %T", raw)
	}
	info := indexInfo{attributes: map[string]string{}}
	for i := 0; i+1 < len(top); i += 2 {
		switch toString(top[i]) {
		case "index_definition":
			def, _ := top[i+1].([]any)
			for j := 0; j+1 < len(def); j += 2 {
				if toString(def[j]) != "prefixes" {
					continue
				}
				list, _ := def[j+1].([]any)
				for _, p := range list {
					info.prefixes = append(info.prefixes, toString(p))
				}
			}
		case "attributes":
			attrs, _ := top[i+1].([]any)
			for _, a := range attrs {
				fields, _ := a.([]any)
				m := pairs(fields)
				if name := m["identifier"]; name != "" {
					info.attributes[name] = m["type"]
				}
			}
		case "num_docs":
			n, err := strconv.ParseFloat(toString(top[i+1]), 64)
			if err == nil {
				info.numDocs = int64(n)
			}
		}
	}
	return info, nil
}

// matches reports why info differs from the index this package creates.
func (info indexInfo) matches(prefix string) error {
	var errs []error
	if !slices.Equal(info.prefixes, []string{prefix}) {
		errs = append(errs, fmt.Errorf("prefixes %v, want [%s]", info.prefixes, prefix))
	}
	if len(info.attributes) != len(indexSchema) {
		errs = append(errs, fmt.Errorf("%d attributes, want %d", len(info.attributes), len(indexSchema)))
	}
	for _, f := range indexSchema {
		if got := info.attributes[f.name]; got != f.typ {
			errs = append(errs, fmt.Errorf("attribute %s is %q, want %s", f.name, got, f.typ))
		}
	}
	return errors.Join(errs...)
}

func pairs(list []any) map[string]string {
	m := make(map[string]string, len(list)/2)
	for i := 0; i+1 < len(list); i += 2 {
		m[toString(list[i])] = toString(list[i+1])
	}
	return m
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
