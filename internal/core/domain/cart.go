package domain

// CartLine is one (item, quantity) pair of a cart snapshot.
type CartLine struct {
	Item     ItemRef
	Quantity int
}

// NormalizeCart copies lines into a fresh snapshot, merging repeated refs
// in first-seen order. It rejects quantities below one.
func NormalizeCart(lines []CartLine) ([]CartLine, error) {
	out := make([]CartLine, 0, len(lines))
	index := make(map[ItemRef]int, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, &InvalidQuantityError{Item: l.Item, Quantity: l.Quantity}
		}
		if i, ok := index[l.Item]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.Item] = len(out)
		out = append(out, l)
	}
	return out, nil
}

func CartRefs(lines []CartLine) []ItemRef {
	refs := make([]ItemRef, len(lines))
	for i, l := range lines {
		refs[i] = l.Item
	}
	return refs
}
