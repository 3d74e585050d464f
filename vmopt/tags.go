package vmopt

import "regexp"

// Resource-graph exports carry the tags column as a stringified dictionary,
// either JSON ({"ClusterId": "c1"}) or the Python-literal form the upstream
// export tool emits ({'ClusterId': 'c1'}). Both reduce to quoted key/value
// pairs, which is all the analyzer needs.
var tagPairRe = regexp.MustCompile(`['"]([^'"]+)['"]\s*:\s*['"]([^'"]*)['"]`)

// ParseTags extracts the key/value pairs from a stringified tag dictionary.
// Malformed input yields an empty map, never an error; tag extraction is
// best-effort by contract.
func ParseTags(raw string) map[string]string {
	tags := make(map[string]string)
	for _, m := range tagPairRe.FindAllStringSubmatch(raw, -1) {
		if _, exists := tags[m[1]]; !exists {
			tags[m[1]] = m[2]
		}
	}
	return tags
}

// TagValue reads one key from a stringified tag dictionary.
func TagValue(raw, key string) string {
	return ParseTags(raw)[key]
}
