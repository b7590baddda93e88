package sniper

import (
	"strings"

	"snipebot/internal/domain"
)

// caReasonMarkers are the substrings that indicate a bad or unknown token
// address rather than a generic execution failure.
var caReasonMarkers = []string{"not found", "invalid", "missing", "mint", "address"}

// gasReasonMarkers narrow an "insufficient" failure down to gas/fee funding.
var gasReasonMarkers = []string{"sol", "lamport", "fee", "gas"}

// ClassifyTradeError maps an execution error onto the closed Reason
// taxonomy by case-insensitive substring matching, in priority order:
// insufficient+gas markers, insufficient alone, address markers, then the
// trade_failed default.
func ClassifyTradeError(err error) domain.Reason {
	if err == nil {
		return domain.ReasonTradeFailed
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "insufficient") {
		for _, marker := range gasReasonMarkers {
			if strings.Contains(msg, marker) {
				return domain.ReasonInsufficientSolGas
			}
		}
		return domain.ReasonInsufficientUSDC
	}
	for _, marker := range caReasonMarkers {
		if strings.Contains(msg, marker) {
			return domain.ReasonCANotFound
		}
	}
	return domain.ReasonTradeFailed
}
