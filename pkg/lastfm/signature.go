package lastfm

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// unsignedParams are transport-only parameters that Last.fm leaves out of
// the signature base string.
var unsignedParams = map[string]bool{
	"format":   true,
	"callback": true,
}

// Sign generates an MD5 signature for Last.fm API requests.
//
// The signature is calculated by:
// 1. Dropping the format and callback parameters
// 2. Sorting the remaining keys in byte order
// 3. Concatenating key+value pairs (e.g., "keyAvalueAkeyBvalueB")
// 4. Appending the API secret
// 5. Taking the MD5 hash of the result, hex encoded
//
// Last.fm computes the same digest server side and rejects any call whose
// api_sig differs, so the output must match it byte for byte.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if unsignedParams[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sigPlain strings.Builder
	for _, k := range keys {
		sigPlain.WriteString(k)
		sigPlain.WriteString(params[k])
	}
	sigPlain.WriteString(secret)

	sum := md5.Sum([]byte(sigPlain.String()))
	return hex.EncodeToString(sum[:])
}
