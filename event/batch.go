package event

// Batch holds the records decoded from one storage change notification.
type Batch struct {
	Block   Hash
	Records []Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int {
	return len(b.Records)
}

// IsEmpty reports whether the batch contains no records.
func (b Batch) IsEmpty() bool {
	return len(b.Records) == 0
}

// OfKind returns the records of the given kind, preserving order.
func (b Batch) OfKind(k Kind) []Record {
	var out []Record
	for _, r := range b.Records {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}
