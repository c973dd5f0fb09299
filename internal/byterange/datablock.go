package byterange

// DataBlock is either a byte-position range destined to become a Range
// URL, or inline data destined to become a data: URI. Spec.md §3.
type DataBlock struct {
	// Range is set when this block represents a byte range. Mutually
	// exclusive with Data.
	Range *BytesPosition
	// Data is set when this block is inline data. Mutually exclusive
	// with Range.
	Data      []byte
	DataClass *Class
}

// NewRangeBlock builds a DataBlock wrapping a byte range.
func NewRangeBlock(p BytesPosition) DataBlock {
	return DataBlock{Range: &p}
}

// NewDataBlock builds a DataBlock wrapping inline data.
func NewDataBlock(data []byte, class *Class) DataBlock {
	return DataBlock{Data: data, DataClass: class}
}

// FromBytesPositions merges positions and wraps each into a Range block.
func FromBytesPositions(positions []BytesPosition) []DataBlock {
	merged := MergeAll(positions)
	blocks := make([]DataBlock, len(merged))
	for i, p := range merged {
		pp := p
		blocks[i] = DataBlock{Range: &pp}
	}
	return blocks
}

// classOf returns the class of a single block, whichever variant it is.
func (b DataBlock) classOf() *Class {
	if b.Range != nil {
		return b.Range.Class
	}
	return b.DataClass
}

// UpdateClasses applies the "update-classes" rule of spec.md §3: if any
// block in the list lacks a class, the class is dropped from all of
// them, preserving ticket monotonicity. Does not merge byte positions.
func UpdateClasses(blocks []DataBlock) []DataBlock {
	allClassed := true
	for _, b := range blocks {
		if b.classOf() == nil {
			allClassed = false
			break
		}
	}
	if allClassed {
		return blocks
	}

	out := make([]DataBlock, len(blocks))
	for i, b := range blocks {
		if b.Range != nil {
			r := *b.Range
			r.Class = nil
			out[i] = DataBlock{Range: &r}
		} else {
			out[i] = DataBlock{Data: b.Data, DataClass: nil}
		}
	}
	return out
}
