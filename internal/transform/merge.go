package transform

import (
	"degpipe/internal/dataset"
)

// OuterJoin merges two datasets on a key field, keeping every key from
// either side. Non-key fields are renamed with the given suffixes, pandas
// style. Record order is deterministic: left records in order, then
// right-only records in order. Duplicate keys within one side keep the
// first occurrence.
func OuterJoin(left, right *dataset.Dataset, id, key, leftSuffix, rightSuffix string) (*dataset.Dataset, error) {
	if err := requireFields("outer-join", left, key); err != nil {
		return nil, err
	}
	if err := requireFields("outer-join", right, key); err != nil {
		return nil, err
	}

	keyType, _ := left.Schema.TypeOf(key)
	schema := dataset.Schema{Fields: []dataset.Field{{Name: key, Type: keyType}}}
	for _, f := range left.Schema.Fields {
		if f.Name != key {
			schema.Fields = append(schema.Fields, dataset.Field{Name: f.Name + leftSuffix, Type: f.Type})
		}
	}
	for _, f := range right.Schema.Fields {
		if f.Name != key {
			schema.Fields = append(schema.Fields, dataset.Field{Name: f.Name + rightSuffix, Type: f.Type})
		}
	}

	rightByKey := make(map[string]dataset.Record, len(right.Records))
	for _, rec := range right.Records {
		k := rec[key].String()
		if _, ok := rightByKey[k]; !ok {
			rightByKey[k] = rec
		}
	}

	blank := func(src *dataset.Dataset, suffix string, out dataset.Record) {
		for _, f := range src.Schema.Fields {
			if f.Name != key {
				out[f.Name+suffix] = dataset.Missing()
			}
		}
	}
	fill := func(src *dataset.Dataset, suffix string, rec, out dataset.Record) {
		for _, f := range src.Schema.Fields {
			if f.Name != key {
				out[f.Name+suffix] = rec[f.Name]
			}
		}
	}

	records := make([]dataset.Record, 0, len(left.Records)+len(right.Records))
	seen := make(map[string]struct{}, len(left.Records))
	for _, lrec := range left.Records {
		k := lrec[key].String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		out := dataset.Record{key: lrec[key]}
		fill(left, leftSuffix, lrec, out)
		if rrec, ok := rightByKey[k]; ok {
			fill(right, rightSuffix, rrec, out)
		} else {
			blank(right, rightSuffix, out)
		}
		records = append(records, out)
	}
	for _, rrec := range right.Records {
		k := rrec[key].String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		out := dataset.Record{key: rrec[key]}
		blank(left, leftSuffix, out)
		fill(right, rightSuffix, rrec, out)
		records = append(records, out)
	}

	merged := left.Derive(id, dataset.StageIntermediate, schema, records)
	return merged, nil
}

// SplitResult holds the three subsets of a merged two-condition dataset.
type SplitResult struct {
	Shared    *dataset.Dataset
	OnlyLeft  *dataset.Dataset
	OnlyRight *dataset.Dataset
}

// Split partitions a merged dataset by which side each record came from,
// probing one suffixed field per side: present on both sides means shared,
// present on one side only means unique to that condition.
func Split(merged *dataset.Dataset, idPrefix, leftProbe, rightProbe string) (*SplitResult, error) {
	if err := requireFields("split", merged, leftProbe, rightProbe); err != nil {
		return nil, err
	}

	var shared, onlyLeft, onlyRight []dataset.Record
	for _, rec := range merged.Records {
		l := !rec[leftProbe].IsMissing()
		r := !rec[rightProbe].IsMissing()
		switch {
		case l && r:
			shared = append(shared, rec)
		case l:
			onlyLeft = append(onlyLeft, rec)
		case r:
			onlyRight = append(onlyRight, rec)
		}
	}

	return &SplitResult{
		Shared:    merged.Derive(idPrefix+"_shared", dataset.StageIntermediate, merged.Schema, shared),
		OnlyLeft:  merged.Derive(idPrefix+"_only_left", dataset.StageIntermediate, merged.Schema, onlyLeft),
		OnlyRight: merged.Derive(idPrefix+"_only_right", dataset.StageIntermediate, merged.Schema, onlyRight),
	}, nil
}
