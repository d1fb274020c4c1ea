package report

// HID reports pack field values LSB-first into a little-endian bit stream.
// The writer and reader below implement exactly that, with no alignment.

type bitWriter struct {
	buf []byte
	off uint
}

func (w *bitWriter) write(v uint32, bits uint) {
	for i := uint(0); i < bits; i++ {
		byteIdx := (w.off + i) / 8
		for int(byteIdx) >= len(w.buf) {
			w.buf = append(w.buf, 0)
		}
		if v&(1<<i) != 0 {
			w.buf[byteIdx] |= 1 << ((w.off + i) % 8)
		}
	}
	w.off += bits
}

type bitReader struct {
	buf []byte
	off uint
}

func (r *bitReader) read(bits uint) (uint32, error) {
	var v uint32
	for i := uint(0); i < bits; i++ {
		byteIdx := (r.off + i) / 8
		if int(byteIdx) >= len(r.buf) {
			return 0, ErrShortReport
		}
		if r.buf[byteIdx]&(1<<((r.off+i)%8)) != 0 {
			v |= 1 << i
		}
	}
	r.off += bits
	return v, nil
}

// Pack serializes one physical report. Contacts fill the collections in
// order; when fewer contacts than collections are supplied the remaining
// groups are zero-filled, the way hardware pads a partially used report.
// Fields the record does not expose are packed as zero. The report ID is
// prefixed when nonzero.
func (r *Report) Pack(contacts []Source, global Source) []byte {
	w := &bitWriter{}
	for i, coll := range r.Collections {
		var src Source
		if i < len(contacts) {
			src = contacts[i]
		}
		packFields(w, coll, src)
	}
	packFields(w, r.Globals, global)

	// Reports are byte aligned on the wire.
	data := w.buf
	if r.ID != 0 {
		data = append([]byte{r.ID}, data...)
	}
	return data
}

func packFields(w *bitWriter, fields []Field, src Source) {
	seen := map[Usage]int{}
	for _, f := range fields {
		if f.Usage == "" || src == nil {
			w.write(0, f.Bits)
			continue
		}
		nth := seen[f.Usage]
		seen[f.Usage] = nth + 1
		v, ok := src.Field(f.Usage, nth)
		if !ok {
			w.write(0, f.Bits)
			continue
		}
		w.write(uint32(v), f.Bits)
	}
}

// Extract decodes the first occurrence of a usage from packed report data.
// The data must not include the report ID prefix.
func (r *Report) Extract(data []byte, u Usage) (int32, error) {
	rd := &bitReader{buf: data}
	find := func(fields []Field) (int32, bool, error) {
		for _, f := range fields {
			v, err := rd.read(f.Bits)
			if err != nil {
				return 0, false, err
			}
			if f.Usage == u {
				return signExtend(v, f.Bits, f.LogicalMin < 0), true, nil
			}
		}
		return 0, false, nil
	}
	for _, coll := range r.Collections {
		if v, ok, err := find(coll); err != nil || ok {
			return v, err
		}
	}
	if v, ok, err := find(r.Globals); err != nil || ok {
		return v, err
	}
	return 0, ErrUsageAbsent
}

func signExtend(v uint32, bits uint, signed bool) int32 {
	if !signed || bits == 0 || bits >= 32 {
		return int32(v)
	}
	if v&(1<<(bits-1)) != 0 {
		v |= ^uint32(0) << bits
	}
	return int32(v)
}
