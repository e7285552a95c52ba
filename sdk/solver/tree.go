package solver

import (
	"fmt"

	"github.com/lox/purecfr/internal/game"
)

// NodeKind tags the betting-tree node variants. A 3-player decision node
// carries the same terminal payload as a 3-player terminal node, so an
// early fold-cut can reuse the terminal evaluator without a type switch.
type NodeKind uint8

const (
	NodeDecision NodeKind = iota
	NodeTerminal2p
	NodeTerminal3p
)

// maxLeafTypes is the number of non-empty surviving-player subsets for a
// three-player hand.
const maxLeafTypes = 7

// leafTypeOf maps the set of non-folded players to its L7 index: {P0},
// {P1}, {P0,P1}, {P2}, {P0,P2}, {P1,P2}, {P0,P1,P2}.
func leafTypeOf(folded [game.MaxPlayers]bool) int8 {
	mask := 0
	if !folded[0] {
		mask |= 1
	}
	if !folded[1] {
		mask |= 2
	}
	if !folded[2] {
		mask |= 4
	}
	table := map[int]int8{1: 0, 2: 1, 3: 2, 4: 3, 5: 4, 6: 5, 7: 6}
	return table[mask]
}

// Node is a betting-tree node. Children are held as a contiguous slice in
// action-enumeration order, which keeps the acting player's every-child
// walk cache-friendly.
type Node struct {
	Kind       NodeKind
	Round      int
	Player     int
	NumChoices int
	SolnIdx    int64
	Children   []*Node

	// threePlayer is set on every node built for a 3-player game, whether
	// terminal or decision: both carry the pot/leaf-type payload below so
	// a decision node can be evaluated directly on a fold-cut.
	threePlayer bool

	// 2-player terminal payload.
	Showdown  bool
	FoldValue [2]int8
	Money     int

	// 3-player terminal payload, also embedded in 3-player decision nodes
	// so did_player_fold can short-circuit the walk without a type switch.
	PotSize      int
	MoneySpent   [game.MaxPlayers]int
	LeafType     int8
	PlayerFolded [game.MaxPlayers]bool
}

// DidPlayerFold reports whether position had already folded by this node,
// letting the 3-player walk cut early and evaluate via the embedded
// terminal payload.
func (n *Node) DidPlayerFold(position int) bool {
	return n.PlayerFolded[position]
}

// Evaluate returns position's utility at a terminal (or fold-cut) node,
// given the per-iteration Hand's precomputed showdown data.
func (n *Node) Evaluate(h *Hand, position int) int64 {
	if n.threePlayer {
		recip := h.PotFracRecip[position][n.LeafType]
		if recip == 0 {
			return -int64(n.MoneySpent[position])
		}
		return int64(n.PotSize)/int64(recip) - int64(n.MoneySpent[position])
	}
	if n.Showdown {
		return int64(h.ShowdownValue2p[position]) * int64(n.Money)
	}
	return int64(n.FoldValue[position]) * int64(n.Money)
}

// TreeRoundSizes gives N_r, the total number of (decision-node, choice)
// pairs built for round r, the entry-store sizing input.
type TreeRoundSizes []int64

// BuildTree constructs the betting tree once via depth-first recursion over
// game states. At each non-terminal state it queries the action
// abstraction, assigns soln_idx as the running per-round total, then
// recurses one child per abstract action in enumeration order.
func BuildTree(g *game.Game, actionAbs ActionAbstraction) (*Node, TreeRoundSizes, error) {
	sizes := make(TreeRoundSizes, g.NumRounds)
	root, err := buildNode(g, actionAbs, game.NewState(g), sizes)
	if err != nil {
		return nil, nil, err
	}
	return root, sizes, nil
}

func buildNode(g *game.Game, actionAbs ActionAbstraction, s game.State, sizes TreeRoundSizes) (*Node, error) {
	if s.IsTerminal(g) {
		return buildTerminal(g, s), nil
	}

	actions, err := actionAbs.GetActions(g, s)
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("solver: no legal actions at a non-terminal state (round %d, player %d)", s.Round, s.Acting)
	}

	n := &Node{
		Kind:       NodeDecision,
		Round:      s.Round,
		Player:     s.Acting,
		NumChoices: len(actions),
		SolnIdx:    sizes[s.Round],
	}
	sizes[s.Round] += int64(len(actions))

	if g.NumPlayers == 3 {
		n.threePlayer = true
		n.PlayerFolded = s.Folded
		for p := 0; p < 3; p++ {
			n.PotSize += s.Spent[p]
			n.MoneySpent[p] = s.Spent[p]
		}
		n.LeafType = leafTypeOf(s.Folded)
	}

	n.Children = make([]*Node, len(actions))
	for i, a := range actions {
		child, err := buildNode(g, actionAbs, s.Do(g, a), sizes)
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	return n, nil
}

func buildTerminal(g *game.Game, s game.State) *Node {
	if g.NumPlayers == 2 {
		n := &Node{Kind: NodeTerminal2p}
		n.Showdown = !s.Folded[0] && !s.Folded[1]
		if n.Showdown {
			n.Money = s.Spent[0]
		} else {
			loser := 0
			if s.Folded[0] {
				loser = 0
			} else {
				loser = 1
			}
			n.Money = s.Spent[loser]
			if s.Folded[0] {
				n.FoldValue[0], n.FoldValue[1] = -1, 1
			} else {
				n.FoldValue[0], n.FoldValue[1] = 1, -1
			}
		}
		return n
	}

	n := &Node{Kind: NodeTerminal3p, threePlayer: true}
	for p := 0; p < 3; p++ {
		n.PotSize += s.Spent[p]
		n.MoneySpent[p] = s.Spent[p]
	}
	n.PlayerFolded = s.Folded
	n.LeafType = leafTypeOf(s.Folded)
	return n
}

// IsLeaf reports whether n has no children: a true terminal, or (for the
// 3-player tree) a decision node being cut short because position has
// already folded.
func (n *Node) IsLeaf(position int) bool {
	return len(n.Children) == 0 || n.DidPlayerFold(position)
}
