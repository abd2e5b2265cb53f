package builder

import "github.com/9seconds/iplocation/geolib"

// dictionary assigns sequential numbers to distinct strings. 0 is
// reserved for an empty value.
type dictionary struct {
	index  map[string]int
	values []string
}

func (d *dictionary) Add(value string) int {
	if value == "" {
		return 0
	}

	if idx, ok := d.index[value]; ok {
		return idx
	}

	d.values = append(d.values, value)
	d.index[value] = len(d.values) - 1

	return len(d.values) - 1
}

func (d *dictionary) Values() []string {
	return d.values
}

func newDictionary() *dictionary {
	return &dictionary{
		index:  map[string]int{},
		values: []string{""},
	}
}

// nameBlob is an append-only storage of city names. The first byte is
// a sentinel so zero reference means 'absent'.
type nameBlob struct {
	data []byte
	refs map[string]uint32
}

// Add appends a name if it was not seen before and returns its packed
// reference.
func (n *nameBlob) Add(name string) (uint32, error) {
	if name == "" {
		return 0, nil
	}

	if ref, ok := n.refs[name]; ok {
		return ref, nil
	}

	ref, err := geolib.PackCityRef(len(n.data), len(name))
	if err != nil {
		return 0, err
	}

	n.data = append(n.data, name...)
	n.refs[name] = ref

	return ref, nil
}

func (n *nameBlob) Bytes() []byte {
	return n.data
}

func newNameBlob() *nameBlob {
	return &nameBlob{
		data: []byte{0},
		refs: map[string]uint32{},
	}
}
