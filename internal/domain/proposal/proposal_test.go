package proposal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

func line(project, item string, cost int64) entity.DecisionLine {
	return entity.DecisionLine{
		ProjectID: project,
		ItemCode:  item,
		Quantity:  1,
		UnitCost:  decimal.NewFromInt(cost),
		FinalCost: decimal.NewFromInt(cost),
	}
}

func key(project, item string) entity.LineKey {
	return entity.LineKey{ProjectID: project, ItemCode: item}
}

func baseProposal() entity.Proposal {
	return entity.Proposal{
		ProposalName: "Lowest Cost",
		Decisions:    []entity.DecisionLine{line("P1", "A", 100), line("P1", "B", 200)},
	}
}

func keys(lines []entity.DecisionLine) []entity.LineKey {
	out := make([]entity.LineKey, len(lines))
	for i, l := range lines {
		out[i] = l.Key()
	}
	return out
}

func TestReconcile_EmptyLedgerIsIdentity(t *testing.T) {
	base := baseProposal()

	assert.Equal(t, base.Decisions, Reconcile(base, NewLedger()))
	assert.Equal(t, base.Decisions, Reconcile(base, nil))
}

func TestReconcile_RemoveAndAdd(t *testing.T) {
	l := NewLedger()
	l.Remove(key("P1", "A"))
	l.Add(line("P2", "C", 50))

	got := Reconcile(baseProposal(), l)

	assert.Equal(t, []entity.LineKey{key("P1", "B"), key("P2", "C")}, keys(got))
	assert.True(t, Total(got).Equal(decimal.NewFromInt(250)), "total = %s", Total(got))
}

func TestReconcile_EditReplacesInPlace(t *testing.T) {
	l := NewLedger()
	l.Edit(key("P1", "B"), line("P1", "B", 250))

	got := Reconcile(baseProposal(), l)

	require.Len(t, got, 2)
	assert.Equal(t, key("P1", "B"), got[1].Key())
	assert.True(t, got[1].FinalCost.Equal(decimal.NewFromInt(250)))
	assert.True(t, got[0].FinalCost.Equal(decimal.NewFromInt(100)))
}

func TestReconcile_RemovalWinsOverEdit(t *testing.T) {
	l := NewLedger()
	l.Edit(key("P1", "A"), line("P1", "A", 999))
	l.Remove(key("P1", "A"))

	got := Reconcile(baseProposal(), l)

	assert.Equal(t, []entity.LineKey{key("P1", "B")}, keys(got))
	assert.True(t, l.IsEdited(key("P1", "A")))
	assert.NotContains(t, l.Edited(), key("P1", "A"))
}

func TestReconcile_DuplicateAddReplacesExistingLine(t *testing.T) {
	l := NewLedger()
	l.Edit(key("P1", "A"), line("P1", "A", 120))
	l.Add(line("P1", "A", 130))
	l.Add(line("P3", "D", 10))
	l.Add(line("P3", "D", 20))

	got := Reconcile(baseProposal(), l)

	assert.Equal(t, []entity.LineKey{key("P1", "A"), key("P1", "B"), key("P3", "D")}, keys(got))
	assert.True(t, got[0].FinalCost.Equal(decimal.NewFromInt(130)))
	assert.True(t, got[2].FinalCost.Equal(decimal.NewFromInt(20)))
}

func TestReconcile_NoDuplicatesAndNoRemovedKeys(t *testing.T) {
	base := entity.Proposal{Decisions: []entity.DecisionLine{
		line("P1", "A", 1), line("P1", "B", 2), line("P2", "A", 3), line("P2", "B", 4),
	}}
	l := NewLedger()
	l.Remove(key("P1", "B"))
	l.Remove(key("P9", "Z"))
	l.Edit(key("P2", "A"), line("P2", "A", 30))
	l.Add(line("P2", "B", 40))
	l.Add(line("P1", "B", 20))

	got := Reconcile(base, l)

	seen := make(map[entity.LineKey]bool)
	for _, g := range got {
		assert.False(t, seen[g.Key()], "duplicate key %s", g.Key())
		seen[g.Key()] = true
	}
	// an explicit add of a removed key brings the key back as a new line
	assert.True(t, seen[key("P1", "B")])
	assert.False(t, seen[key("P9", "Z")])
}

func TestReconcile_DoesNotMutateBase(t *testing.T) {
	base := baseProposal()
	snapshot := base.Clone()
	l := NewLedger()
	l.Edit(key("P1", "A"), line("P1", "A", 1))
	l.Remove(key("P1", "B"))

	_ = Reconcile(base, l)

	assert.Equal(t, snapshot, base)
}

func TestLedger_Operations(t *testing.T) {
	l := NewLedger()
	assert.True(t, l.IsEmpty())

	l.Remove(key("P1", "A"))
	v := l.Version()
	l.Remove(key("P1", "A"))
	assert.Equal(t, v, l.Version(), "Remove should be idempotent")
	assert.Equal(t, []entity.LineKey{key("P1", "A")}, l.Removed())

	l.Unremove(key("P1", "A"))
	assert.False(t, l.IsRemoved(key("P1", "A")))

	k1 := l.Add(line("P2", "C", 50))
	k2 := l.Add(line("P2", "D", 60))
	assert.Equal(t, "added-1", k1)
	assert.Equal(t, "added-2", k2)

	require.NoError(t, l.UndoAdd(0))
	added := l.Added()
	require.Len(t, added, 1)
	assert.Equal(t, "added-2", added[0].DisplayKey)

	err := l.UndoAdd(5)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	l.Edit(key("P1", "B"), line("P1", "B", 1))
	l.UndoEdit(key("P1", "B"))
	assert.False(t, l.IsEdited(key("P1", "B")))

	before := l.Version()
	l.Clear()
	assert.True(t, l.IsEmpty())
	assert.Greater(t, l.Version(), before)
	assert.Equal(t, "added-3", l.Add(line("P4", "E", 1)), "display keys are never reused")
}

func TestToSaveRequest_ManualEditFlags(t *testing.T) {
	l := NewLedger()
	l.Edit(key("P1", "B"), line("P1", "B", 250))
	l.Add(line("P2", "C", 50))

	lines := Reconcile(baseProposal(), l)
	payload := ToSaveRequest("run-1", "Lowest Cost", lines, l)

	assert.Equal(t, "run-1", payload.RunID)
	assert.Equal(t, "Lowest Cost", payload.ProposalName)
	require.Len(t, payload.Decisions, 3)

	flags := map[entity.LineKey]bool{}
	for _, d := range payload.Decisions {
		flags[d.Key()] = d.IsManualEdit
	}
	assert.Equal(t, map[entity.LineKey]bool{
		key("P1", "A"): false,
		key("P1", "B"): true,
		key("P2", "C"): true,
	}, flags)
}
