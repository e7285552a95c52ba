// Package game implements the external "Game & Hand" collaborator that the
// Pure CFR core consumes: a small generic game-definition engine (limit or
// no-limit, heads-up or three-player, an arbitrary number of betting rounds)
// along with card dealing and a pluggable hand ranker. A full Texas Hold'em
// hand-ranking library is explicitly out of scope for this system; RankFunc
// exists so a richer evaluator can be plugged in without touching the core.
package game

import (
	"fmt"
	"math/rand/v2"
)

// Card is encoded as rank*numSuits+suit, per the card-abstraction contract
// the core relies on when building Null-abstraction buckets.
type Card int

// Rank returns the card's rank given the game's suit count.
func (c Card) Rank(numSuits int) int { return int(c) / numSuits }

// Suit returns the card's suit given the game's suit count.
func (c Card) Suit(numSuits int) int { return int(c) % numSuits }

func (c Card) String() string {
	return fmt.Sprintf("c%d", int(c))
}

// Deck is a fixed-size, without-replacement source of Cards over a
// numRanks*numSuits universe.
type Deck struct {
	cards []Card
	next  int
}

// NewDeck builds and shuffles a fresh deck for the given rank/suit counts.
func NewDeck(numRanks, numSuits int, rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, numRanks*numSuits)}
	for i := range d.cards {
		d.cards[i] = Card(i)
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// Deal removes and returns n cards from the top of the deck.
func (d *Deck) Deal(n int) []Card {
	if d.next+n > len(d.cards) {
		return nil
	}
	out := d.cards[d.next : d.next+n]
	d.next += n
	return out
}
