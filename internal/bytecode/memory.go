package bytecode

// Names the memory provider module is linked under.
const (
	MemoryModuleName = "env"
	MemoryExportName = "memory"
)

// MemoryModule returns a module that defines and exports a single linear
// memory with the given page limits. Guests import it as env.memory.
func MemoryModule(initial, maximum uint32) []byte {
	out := append(append([]byte{}, magic...), version...)

	var mem []byte
	mem = appendU32(mem, 1)
	mem = append(mem, 0x01)
	mem = appendU32(mem, initial)
	mem = appendU32(mem, maximum)
	out = append(out, secMemory)
	out = appendU32(out, uint32(len(mem)))
	out = append(out, mem...)

	var exp []byte
	exp = appendU32(exp, 1)
	exp = appendName(exp, MemoryExportName)
	exp = append(exp, KindMemory)
	exp = appendU32(exp, 0)
	out = append(out, secExport)
	out = appendU32(out, uint32(len(exp)))
	return append(out, exp...)
}
