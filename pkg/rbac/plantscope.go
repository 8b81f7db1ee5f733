package rbac

// FilterByPlant narrows records to those whose plant attribute intersects
// the principal's assigned plants. ADMIN passes everything through
// unchanged. The filter is stable: output is a subsequence of the input in
// the same relative order, with no deduplication. A record carrying a
// plant code outside the principal's assignments is simply excluded;
// unknown codes are a non-match, not an error.
func FilterByPlant[T any](records []T, plantCode func(T) PlantCode, p *Principal) []T {
	if p == nil {
		return nil
	}
	if p.IsAdmin() {
		return records
	}

	filtered := make([]T, 0, len(records))
	for _, record := range records {
		if p.HasPlant(plantCode(record)) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}
