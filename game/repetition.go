package game

import "github.com/samber/lo"

// RepetitionTable counts how often each position occurred at a turn boundary
// during the current game.
type RepetitionTable struct {
	counts map[PositionKey]int
}

func NewRepetitionTable() *RepetitionTable {
	return &RepetitionTable{counts: make(map[PositionKey]int)}
}

func repetitionKey(fingerprint uint64, toMove Color) PositionKey {
	return PositionKey{Fingerprint: fingerprint, ToMove: toMove}
}

func (t *RepetitionTable) Record(fingerprint uint64, toMove Color) {
	t.counts[repetitionKey(fingerprint, toMove)]++
}

// RecordBoard records the position of a board standing at a turn boundary.
func (t *RepetitionTable) RecordBoard(b *Board) {
	if b.steps != 0 {
		panic("position recorded in the middle of a turn")
	}
	t.Record(b.fingerprint, b.toMove)
}

func (t *RepetitionTable) Count(fingerprint uint64, toMove Color) int {
	if t == nil {
		return 0
	}
	return t.counts[repetitionKey(fingerprint, toMove)]
}

// IsThirdRepetition reports whether reaching the position again would be its
// third occurrence.
func (t *RepetitionTable) IsThirdRepetition(fingerprint uint64, toMove Color) bool {
	return t.Count(fingerprint, toMove) >= 2
}

func (t *RepetitionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.counts)
}

func (t *RepetitionTable) Reset() {
	clear(t.counts)
}

func (t *RepetitionTable) Clone() *RepetitionTable {
	return &RepetitionTable{counts: lo.Assign(t.counts)}
}

// FilterRepetitions drops the turn ending steps that would be a virtual pass
// or a third repetition of a position recorded in rep. rep may be nil.
func (b *Board) FilterRepetitions(steps []Step, rep *RepetitionTable) []Step {
	return lo.Filter(steps, func(s Step, _ int) bool {
		if !b.EndsTurn(s) {
			return true
		}
		fp := b.AfterStepFingerprint(s)
		if fp == b.turnStart {
			return false
		}
		return !rep.IsThirdRepetition(fp, b.toMove.Opponent())
	})
}

// LegalSteps generates the steps of the side to move and filters repetitions.
func (b *Board) LegalSteps(rep *RepetitionTable) []Step {
	return b.FilterRepetitions(b.GenerateSteps(b.toMove), rep)
}
