package resolver

// nameBlocks assigns a short, stable name to every block in the just
// resolved chunk, useful when printing the resolved AST for debugging: the
// root is "_", and each child appends a letter to its parent's name.
func (r *resolver) nameBlocks() {
	nameBlock(r.root, "_")
}

func nameBlock(b *block, name string) {
	b.name = name
	for i, cb := range b.children {
		nameBlock(cb, name+letterFor(i))
	}
}

func letterFor(i int) string {
	if i < 26 {
		return string(rune(i) + 'a')
	}
	if i < 52 {
		return string(rune(i-26) + 'A')
	}
	return "?"
}
