package toncell

// Address is the binary form of a standard account address: a workchain
// id and a 256-bit account id. Text encoding and checksums live outside
// this package; only the cell-level layout is handled here. A nil
// *Address stands for addr_none.
type Address struct {
	Workchain int8
	Data      [32]byte
}

// NewAddress builds a standard address.
func NewAddress(workchain int8, account [32]byte) *Address {
	return &Address{Workchain: workchain, Data: account}
}

// Equal reports whether two addresses are the same, treating nil as
// addr_none.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Workchain == other.Workchain && a.Data == other.Data
}
