package odds

import "github.com/rewired-gh/qualifyodds/internal/models"

// ClassifyTier labels a probability. Districts far along toward threshold are
// never labeled below LIKELY (80%) or POSSIBLE (60%).
func ClassifyTier(prob, pctVerified float64) models.Tier {
	switch {
	case prob >= 1.0:
		return models.TierConfirmed
	case prob >= 0.90:
		return models.TierNearlyCertain
	case prob >= 0.70:
		return models.TierVeryLikely
	case prob >= 0.50:
		return models.TierLikely
	case prob >= 0.25:
		return models.TierPossible
	case pctVerified >= 0.80:
		return models.TierLikely
	case pctVerified >= 0.60:
		return models.TierPossible
	case prob >= 0.10:
		return models.TierUnlikely
	default:
		return models.TierNoChance
	}
}
