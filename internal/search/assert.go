package search

var (
	_ SearchReads = (*BAMSearch)(nil)
	_ Search      = (*VCFSearch)(nil)
	_ Search      = (*BCFSearch)(nil)
	_ SearchReads = (*CRAMSearch)(nil)
)
