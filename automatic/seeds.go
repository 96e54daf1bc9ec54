package automatic

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"lukechampine.com/frand"
)

// GenerateSeeds returns n random opening seeds.
func GenerateSeeds(n int) [][32]byte {
	seeds := make([][32]byte, n)
	for i := range seeds {
		frand.Read(seeds[i][:])
	}
	return seeds
}

// SaveSeeds writes one hex seed per line.
func SaveSeeds(seeds [][32]byte, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# opening seeds, 32 bytes hex each")
	for _, s := range seeds {
		fmt.Fprintln(w, hex.EncodeToString(s[:]))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSeeds reads a file written by SaveSeeds. Blank lines and # comments
// are skipped.
func LoadSeeds(path string) ([][32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var seeds [][32]byte
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		b, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("seed on line %d: %w", line, err)
		}
		if len(b) != 32 {
			return nil, fmt.Errorf("seed on line %d has %d bytes, want 32", line, len(b))
		}
		var s [32]byte
		copy(s[:], b)
		seeds = append(seeds, s)
	}
	return seeds, sc.Err()
}
