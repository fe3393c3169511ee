package credentials

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Word lists for generating kid-friendly usernames
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "swift", "clever", "jolly", "mighty",
	"lucky", "magic", "bouncy", "cheerful", "daring", "eager", "gentle", "lively",
	"merry", "noble", "quick", "cosmic", "starry", "glowing", "misty", "silver",
	"golden", "dreamy", "curious", "sleepy", "shiny", "twinkly",
}

var nouns = []string{
	"owl", "fox", "otter", "panda", "badger", "rabbit", "hedgehog", "dolphin",
	"comet", "planet", "rocket", "meteor", "nebula", "crescent", "lantern", "firefly",
	"explorer", "ranger", "voyager", "astronaut", "dragon", "unicorn", "phoenix", "wizard",
	"moth", "sparrow", "wolf", "bear", "lynx", "heron",
}

// PINLength is the number of digits in a generated kid PIN
const PINLength = 4

// GenerateKidUsername generates a random username in the format "adjective-noun"
func GenerateKidUsername() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	return adjective + "-" + noun, nil
}

// GenerateKidPIN generates a random numeric PIN
func GenerateKidPIN() (string, error) {
	var b strings.Builder
	for i := 0; i < PINLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + num.Int64()))
	}
	return b.String(), nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
