package forecast

import (
	"sort"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

// topMovers is the number of districts listed under biggest gains and losses.
const topMovers = 5

func buildSnapshotSection(records []models.DistrictRecord, prior *models.Report, doc *models.HistoryDocument, reprocessed bool) models.SnapshotSection {
	var section models.SnapshotSection
	if reprocessed {
		section = cloneSection(prior.Snapshot)
	} else {
		section = diffSection(records, prior)
	}

	section.Anomalies = []models.AnomalyRecord{}
	if doc != nil {
		section.Anomalies = append(section.Anomalies, doc.Anomalies...)
	}
	return section
}

func diffSection(records []models.DistrictRecord, prior *models.Report) models.SnapshotSection {
	section := models.SnapshotSection{
		BiggestGains:  []models.DistrictChange{},
		BiggestLosses: []models.DistrictChange{},
		NewlyMet:      []int{},
		NewlyFailed:   []int{},
	}

	var gains, losses []models.DistrictChange
	for _, rec := range records {
		change := models.DistrictChange{
			District:  rec.District,
			Delta:     rec.Delta,
			Verified:  rec.Verified,
			Threshold: rec.Threshold,
		}
		switch {
		case rec.Delta > 0:
			gains = append(gains, change)
			section.Flow.Gained += rec.Delta
			section.Flow.DistrictsUp++
		case rec.Delta < 0:
			losses = append(losses, change)
			section.Flow.Lost += -rec.Delta
			section.Flow.DistrictsDown++
		}

		prev := prior.District(rec.District)
		if prev == nil {
			continue
		}
		wasMet := prev.Verified >= prev.Threshold
		switch {
		case rec.Met() && !wasMet:
			section.NewlyMet = append(section.NewlyMet, rec.District)
		case !rec.Met() && wasMet:
			section.NewlyFailed = append(section.NewlyFailed, rec.District)
		}
	}
	section.Flow.Net = section.Flow.Gained - section.Flow.Lost

	sort.SliceStable(gains, func(i, j int) bool { return gains[i].Delta > gains[j].Delta })
	sort.SliceStable(losses, func(i, j int) bool { return losses[i].Delta < losses[j].Delta })
	section.BiggestGains = append(section.BiggestGains, gains[:min(len(gains), topMovers)]...)
	section.BiggestLosses = append(section.BiggestLosses, losses[:min(len(losses), topMovers)]...)
	return section
}

func cloneSection(s models.SnapshotSection) models.SnapshotSection {
	out := s
	out.BiggestGains = append([]models.DistrictChange{}, s.BiggestGains...)
	out.BiggestLosses = append([]models.DistrictChange{}, s.BiggestLosses...)
	out.NewlyMet = append([]int{}, s.NewlyMet...)
	out.NewlyFailed = append([]int{}, s.NewlyFailed...)
	return out
}
