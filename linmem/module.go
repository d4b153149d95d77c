package linmem

const memoryExport = "mem"

// memoryModule encodes a module whose only content is one exported memory
// with the given limits.
func memoryModule(initial, max uint32) []byte {
	limits := []byte{0x01}
	limits = appendULEB(limits, initial)
	limits = appendULEB(limits, max)

	memSec := append([]byte{0x01}, limits...)

	exportSec := []byte{0x01, byte(len(memoryExport))}
	exportSec = append(exportSec, memoryExport...)
	exportSec = append(exportSec, 0x02, 0x00) // memory 0

	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	bin = appendSection(bin, 0x05, memSec)
	bin = appendSection(bin, 0x07, exportSec)
	return bin
}

func appendSection(dst []byte, id byte, body []byte) []byte {
	dst = append(dst, id)
	dst = appendULEB(dst, uint32(len(body)))
	return append(dst, body...)
}

func appendULEB(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b)
	}
}
