package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"clinic-frontdesk/internal/domain/entity"

	"github.com/google/uuid"
)

// HistoryMerger appends visits to a patient's history. It owns normalization
// of incoming readings and the Seq assignment; persistence is the caller's job.
type HistoryMerger struct {
	now func() time.Time
}

func NewHistoryMerger() *HistoryMerger {
	return &HistoryMerger{now: time.Now}
}

// Append normalizes visit and adds it to the end of identity's history.
// The appended record is unsaved (zero ID) until the repository inserts it.
func (m *HistoryMerger) Append(identity *entity.PatientIdentity, visit entity.VisitRecord) *entity.PatientIdentity {
	record := m.Normalize(visit)
	record.ID = uuid.Nil
	record.PatientID = identity.ID
	record.Seq = identity.HistoryLength + 1

	identity.Visits = append(identity.Visits, record)
	identity.HistoryLength++
	return identity
}

// Normalize returns a cleaned copy of visit. Lists are trimmed and
// de-duplicated, non-finite readings are dropped, and the stress level is
// derived from the score when one is present.
func (m *HistoryMerger) Normalize(visit entity.VisitRecord) entity.VisitRecord {
	out := visit

	if out.MeasurementDate.IsZero() {
		out.MeasurementDate = m.now()
	}

	out.PulseWave = normalizePulseWave(visit.PulseWave)
	out.StressCategories = normalizeList(visit.StressCategories)
	out.Symptoms = normalizeList(visit.Symptoms)
	out.Drugs = normalizeList(visit.Drugs)
	out.Preferences = normalizeList(visit.Preferences)
	out.Allergies = normalizeList(visit.Allergies)
	out.SideEffects = normalizeList(visit.SideEffects)
	out.Memo = strings.TrimSpace(visit.Memo)

	out.StressScore = nil
	out.StressLevel = nil
	if visit.StressScore != nil && !math.IsNaN(*visit.StressScore) && !math.IsInf(*visit.StressScore, 0) {
		score := math.Max(0, math.Min(100, *visit.StressScore))
		level := entity.StressLevelForScore(score)
		out.StressScore = &score
		out.StressLevel = &level
	} else if visit.StressLevel != nil {
		if level := strings.ToLower(strings.TrimSpace(*visit.StressLevel)); level != "" {
			out.StressLevel = &level
		}
	}

	return out
}

// SortForDisplay orders visits by measurement date ascending, ties by Seq.
// The input slice is not modified.
func SortForDisplay(visits []entity.VisitRecord) []entity.VisitRecord {
	sorted := make([]entity.VisitRecord, len(visits))
	copy(sorted, visits)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].MeasurementDate.Equal(sorted[j].MeasurementDate) {
			return sorted[i].MeasurementDate.Before(sorted[j].MeasurementDate)
		}
		return sorted[i].Seq < sorted[j].Seq
	})
	return sorted
}

func normalizePulseWave(in entity.PulseWave) entity.PulseWave {
	out := make(entity.PulseWave, len(in))
	for k, v := range in {
		key := strings.TrimSpace(k)
		if key == "" || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[key] = v
	}

	// Older devices report heart rate only under heartRate.
	if _, ok := out["HR"]; !ok {
		if hr, ok := out["heartRate"]; ok {
			out["HR"] = hr
		}
	}
	return out
}

func normalizeList(in []string) entity.StringList {
	if len(in) == 0 {
		return entity.StringList{}
	}

	seen := make(map[string]struct{}, len(in))
	out := make(entity.StringList, 0, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
