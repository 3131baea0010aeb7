// Package leaderboard keeps entries of one difficulty ranked by completion time.
package leaderboard

import "minesweeper/core"

// Board abstracts an append-only ranking of entries, fastest first.
type Board interface {
	Insert(e core.Entry)
	TopN(n int) []core.Entry
	Len() int
}
