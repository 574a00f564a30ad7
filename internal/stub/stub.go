// Package stub models the opaque firmware-side binaries the tool uploads
// to perform one device-side function — turbo-upload, flashing, dumping,
// reading a serial number, or a BIOS upgrade. Their actual machine code
// is out of scope; each Template here carries the load address, entry
// point, and a placeholder byte body long enough to exercise the
// surrounding upload and patch logic faithfully.
package stub

// Template is a parameterized stub: a fixed load address and entry
// point, plus a byte body. Bytes returns a fresh copy on every call so
// concurrent or repeated uses never observe another caller's patch.
type Template struct {
	Base  int32
	Entry int32
	body  []byte
}

// NewTemplate builds a Template from a body that the caller will not
// mutate afterwards; Template keeps its own copy.
func NewTemplate(base, entry int32, body []byte) Template {
	owned := make([]byte, len(body))
	copy(owned, body)
	return Template{Base: base, Entry: entry, body: owned}
}

// Bytes returns a fresh copy of the stub body.
func (t Template) Bytes() []byte {
	out := make([]byte, len(t.body))
	copy(out, t.body)
	return out
}

// Len reports the stub body length.
func (t Template) Len() int { return len(t.body) }

// Patched returns a fresh copy of the body with patch applied to it, so
// repeated patches (e.g. the flasher's erase-count signature, the
// dumper's bank byte) never mutate shared template state.
func (t Template) Patched(patch func([]byte)) []byte {
	out := t.Bytes()
	patch(out)
	return out
}
