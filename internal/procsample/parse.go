package procsample

import (
	"strconv"
	"strings"
)

// usageKey identifies one accumulation bucket for the duration of a
// sampling window. Name is part of the key so a recycled pid does not
// merge two different programs.
type usageKey struct {
	pid  int32
	name string
}

// parseLine parses one delimited sample line of the accounting tool's
// output: "<time>,<name>.<pid>,<bytes_in>,<bytes_out>". Header lines,
// blank lines and anything malformed report ok=false and are skipped by
// the caller.
func parseLine(line string) (key usageKey, bytesIn, bytesOut uint64, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return usageKey{}, 0, 0, false
	}

	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return usageKey{}, 0, 0, false
	}

	proc := strings.TrimSpace(fields[1])
	dot := strings.LastIndexByte(proc, '.')
	if dot <= 0 || dot == len(proc)-1 {
		return usageKey{}, 0, 0, false
	}
	pid, err := strconv.ParseInt(proc[dot+1:], 10, 32)
	if err != nil || pid < 0 {
		return usageKey{}, 0, 0, false
	}

	bytesIn, err = strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return usageKey{}, 0, 0, false
	}
	bytesOut, err = strconv.ParseUint(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		return usageKey{}, 0, 0, false
	}

	return usageKey{pid: int32(pid), name: proc[:dot]}, bytesIn, bytesOut, true
}
