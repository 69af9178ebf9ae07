package session

// History is the set of track IDs played in the current continuous mode
// session. Used purely for dedup, never for ordering.
type History struct {
	ids map[string]struct{}
}

func (h *History) Add(id string) {
	if h.ids == nil {
		h.ids = make(map[string]struct{})
	}
	h.ids[id] = struct{}{}
}

func (h *History) Contains(id string) bool {
	_, ok := h.ids[id]
	return ok
}

func (h *History) Len() int {
	return len(h.ids)
}

func (h *History) Clear() {
	h.ids = nil
}
