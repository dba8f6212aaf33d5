/*
calculator.go - pure reward lookup against the price master.

The lookup is forgiving about action spelling: operators record both
"修理済み" and "修理" style names in the master, so a miss on the exact
name retries with the completion suffix stripped. An action the master
does not price at all earns a zero reward, never an error.
*/
package money

import "strings"

// suffixes stripped for the second lookup pass.
var completionSuffixes = []string{"済み", "完了"}

// ComputeReward prices one action for one staff rank.
//
// Resolution order:
//  1. exact action name
//  2. action name with a trailing 済み/完了 stripped
//  3. zero reward
func ComputeReward(action, rank string, table *PriceTable) Reward {
	rule, ok := table.Rule(strings.TrimSpace(action))
	if !ok {
		for _, suf := range completionSuffixes {
			if trimmed, found := strings.CutSuffix(strings.TrimSpace(action), suf); found {
				if rule, ok = table.Rule(trimmed); ok {
					break
				}
			}
		}
	}
	if !ok {
		return ZeroReward()
	}

	add := rule.RankAdd[rank]
	return Reward{
		BasePrice: rule.BasePrice,
		Score:     rule.Score,
		RankAdd:   add,
		Total:     rule.BasePrice.Add(add),
	}
}
