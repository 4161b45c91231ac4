package discovery

import "strings"

// chainNameFragments is a fixed denylist of well known chain names. This is
// a substring heuristic, not a verified chain registry; false positives and
// negatives are accepted product behavior until a registry replaces it.
var chainNameFragments = []string{
	"mcdonald",
	"subway",
	"starbucks",
	"kfc",
	"pizza hut",
	"burger king",
	"domino",
	"taco bell",
	"dunkin",
	"wendy",
}

// IsLikelyChain reports whether a restaurant name matches the chain denylist.
func IsLikelyChain(name string) bool {
	lowered := strings.ToLower(name)
	for _, fragment := range chainNameFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}
