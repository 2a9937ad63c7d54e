package eval

// alignKey pairs records across the two sources. index strings may differ in
// formatting between sources, so tempIndex participates in the key.
type alignKey struct {
	index     string
	tempIndex int
}

type alignedPair struct {
	base *Answer
	ai   *Answer

	// duplicate marks an AI record whose key was already claimed by an
	// earlier AI record. It never pairs with a baseline record.
	duplicate bool
}

// alignRecords matches baseline and AI records on (index, tempIndex). Output
// order is baseline order followed by unmatched AI records in their own order;
// unmatched and duplicate records keep a nil counterpart and are surfaced as
// ERROR items by the caller instead of being dropped.
func alignRecords(baseline, aiItems []Answer) []alignedPair {
	aiByKey := make(map[alignKey]*Answer, len(aiItems))
	for i := range aiItems {
		key := alignKey{index: aiItems[i].Index, tempIndex: aiItems[i].TempIndex}
		if _, exists := aiByKey[key]; !exists {
			aiByKey[key] = &aiItems[i]
		}
	}

	pairs := make([]alignedPair, 0, len(baseline))
	matched := make(map[alignKey]bool, len(baseline))
	for i := range baseline {
		key := alignKey{index: baseline[i].Index, tempIndex: baseline[i].TempIndex}
		pair := alignedPair{base: &baseline[i]}
		if counterpart, ok := aiByKey[key]; ok && !matched[key] {
			pair.ai = counterpart
			matched[key] = true
		}
		pairs = append(pairs, pair)
	}

	for i := range aiItems {
		key := alignKey{index: aiItems[i].Index, tempIndex: aiItems[i].TempIndex}
		switch {
		case !matched[key]:
			pairs = append(pairs, alignedPair{ai: &aiItems[i]})
			matched[key] = true
		case aiByKey[key] != &aiItems[i]:
			// A second AI record claimed an already-consumed key. Keep
			// it visible rather than dropping it on the floor.
			pairs = append(pairs, alignedPair{ai: &aiItems[i], duplicate: true})
		}
	}

	return pairs
}
