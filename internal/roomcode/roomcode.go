// Package roomcode suggests memorable room codes for the demo CLI client,
// adapted from the teacher's backend/internal/signaling word-list room ID
// generator. Room codes are a client-side convenience only: the Room
// Registry accepts any RoomId string a client sends, generated or typed.
package roomcode

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/nordcall/signalcore/internal/ids"
)

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
}

var dishes = []string{
	"pancake", "waffle", "sushi", "ramen", "curry", "taco", "burrito", "biryani", "paella", "risotto",
}

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
}

var extras = []string{
	"dragon", "unicorn", "griffin", "phoenix", "fairy", "gnome", "sprite", "pixie", "mermaid", "elf",
}

var wordLists = [][]string{animals, dishes, adjectives, extras}

// Suggest generates a four-word, hyphen-joined room code such as
// "kitten-waffle-happy-dragon": one random word from each list, in list
// order, so every suggestion reads animal, dish, adjective, creature, each
// word in a stable slot.
func Suggest() ids.RoomId {
	words := make([]string, len(wordLists))
	for i, list := range wordLists {
		words[i] = list[randIndex(len(list))]
	}
	return ids.RoomId(strings.Join(words, "-"))
}

func randIndex(n int) int {
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
