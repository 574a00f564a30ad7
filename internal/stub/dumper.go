package stub

// dumperBankOffset is the byte offset in the dumper stub body that
// selects bank 2 when set to 1.
const dumperBankOffset = 0xAB

// Dumper reads flash contents back to the PC over the console RPC,
// entered at 0x10000.
var Dumper = NewTemplate(0x10000, 0x10000, make([]byte, dumperBankOffset+1))

// WithBank2 returns a fresh copy of the dumper stub body with the bank-2
// byte set.
func (t Template) WithBank2(bank2 bool) []byte {
	body := t.Bytes()
	if bank2 {
		body[dumperBankOffset] = 1
	}
	return body
}
