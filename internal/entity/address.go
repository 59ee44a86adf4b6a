package entity

import "strings"

// Address identifies an account or contract.
type Address string

const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

func NewAddress(addr string) Address {
	return Address(strings.ToLower(addr))
}

func (a Address) String() string {
	return string(a)
}
