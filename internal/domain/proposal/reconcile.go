package proposal

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// Reconcile merges base with the ledger. Removed lines are dropped, edited
// lines are substituted in place, and added lines are appended. An added
// line whose key already exists replaces that line in its position, so the
// result never holds two lines with the same key. A nil ledger is empty.
func Reconcile(base entity.Proposal, ledger *Ledger) []entity.DecisionLine {
	out := make([]entity.DecisionLine, 0, len(base.Decisions))
	index := make(map[entity.LineKey]int, len(base.Decisions))

	put := func(line entity.DecisionLine) {
		key := line.Key()
		if i, ok := index[key]; ok {
			out[i] = line
			return
		}
		index[key] = len(out)
		out = append(out, line)
	}

	for _, line := range base.Decisions {
		key := line.Key()
		if ledger != nil {
			if ledger.IsRemoved(key) {
				continue
			}
			if edited, ok := ledger.edited[key]; ok {
				line = edited
			}
		}
		put(line)
	}

	if ledger != nil {
		for _, a := range ledger.added {
			put(a.Line)
		}
	}
	return out
}

// Total sums final_cost over lines
func Total(lines []entity.DecisionLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.FinalCost)
	}
	return total
}

// ToSaveRequest maps reconciled lines to the persistence payload. Lines
// whose key was edited, and every added line, are flagged as manual edits.
func ToSaveRequest(runID, proposalName string, lines []entity.DecisionLine, ledger *Ledger) entity.ProposalSavePayload {
	manual := make(map[entity.LineKey]bool)
	if ledger != nil {
		for k := range ledger.Edited() {
			manual[k] = true
		}
		for _, a := range ledger.added {
			manual[a.Line.Key()] = true
		}
	}

	payload := entity.ProposalSavePayload{
		RunID:        runID,
		ProposalName: proposalName,
		Decisions:    make([]entity.SaveLine, 0, len(lines)),
	}
	for _, l := range lines {
		payload.Decisions = append(payload.Decisions, entity.SaveLine{
			DecisionLine: l,
			IsManualEdit: manual[l.Key()],
		})
	}
	return payload
}
