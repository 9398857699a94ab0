// Package cid derives content identifiers for published objects.
package cid

import (
	"fmt"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CIDv1 (raw codec, sha2-256) of data in its default
// base32 string form. Identical bytes always yield the same identifier.
func Sum(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return gocid.NewCidV1(gocid.Raw, mh).String(), nil
}

// Valid reports whether s parses as a content identifier.
func Valid(s string) bool {
	_, err := gocid.Decode(s)
	return err == nil
}
