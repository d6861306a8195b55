package symtab

// FunctionSymbol is a function node keyed by its normalized address.
type FunctionSymbol struct {
	Address string `json:"address" header:"ADDRESS"`
	Name    string `json:"name" header:"NAME"`
}

// Index is the function list of one load together with its name<->address
// lookups. The extractor and the call graph builder share a single Index.
//
// Insertion is monotonic: entries are never removed. On collision the last
// write wins; a re-used address keeps its original position in the function
// list and takes the new name. The name it replaced is kept as an alias that
// still resolves to the address, so a call operand spelled with either name
// finds the function; NameOf always reports the latest name. A name given to
// several addresses resolves to the latest one. Index is not safe for
// concurrent use.
type Index struct {
	functions  []FunctionSymbol
	position   map[string]int
	nameToAddr map[string]string
	addrToName map[string]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		functions:  []FunctionSymbol{},
		position:   make(map[string]int),
		nameToAddr: make(map[string]string),
		addrToName: make(map[string]string),
	}
}

// Add records name at the normalized address addr in both directions and in
// the function list. It reports whether addr was new.
func (x *Index) Add(addr, name string) bool {
	x.nameToAddr[name] = addr
	x.addrToName[addr] = name

	if i, ok := x.position[addr]; ok {
		x.functions[i].Name = name
		return false
	}
	x.position[addr] = len(x.functions)
	x.functions = append(x.functions, FunctionSymbol{Address: addr, Name: name})
	return true
}

// AddressOf returns the normalized address recorded for name.
func (x *Index) AddressOf(name string) (string, bool) {
	addr, ok := x.nameToAddr[name]
	return addr, ok
}

// NameOf returns the name recorded for a normalized address.
func (x *Index) NameOf(addr string) (string, bool) {
	name, ok := x.addrToName[addr]
	return name, ok
}

// HasAddress reports whether addr is known.
func (x *Index) HasAddress(addr string) bool {
	_, ok := x.addrToName[addr]
	return ok
}

// Len returns the number of distinct function addresses.
func (x *Index) Len() int {
	return len(x.functions)
}

// Functions returns a copy of the function list in insertion order.
func (x *Index) Functions() []FunctionSymbol {
	out := make([]FunctionSymbol, len(x.functions))
	copy(out, x.functions)
	return out
}

// AddressToName returns a copy of the address->name lookup.
func (x *Index) AddressToName() map[string]string {
	out := make(map[string]string, len(x.addrToName))
	for k, v := range x.addrToName {
		out[k] = v
	}
	return out
}
