// Command voxelcoldump decodes a single flat-format chunk column file and
// reports what it decoded, for manual inspection of a captured arena dump.
// It does not re-encode the column.
package main

import (
	"encoding/binary"
	"encoding/hex"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/oriumgames/voxelcol/world/chunk"
)

func main() {
	path := flag.String("file", "", "path to a raw flat-format column dump")
	bitmask := flag.Uint("bitmask", 0xFFFF, "16-bit section presence mask")
	addMask := flag.Uint("add-mask", 0, "16-bit add-nibble presence mask")
	skyMask := flag.Uint("sky-mask", 0xFFFF, "16-bit sky-light presence mask")
	flag.Parse()

	log := logrus.StandardLogger()
	if *path == "" {
		log.Fatal("voxelcoldump: -file is required")
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("voxelcoldump: read %s: %v", *path, err)
	}

	c, err := chunk.FromReader(chunk.NewCursor(data), uint16(*bitmask), uint16(*addMask), uint16(*skyMask))
	if err != nil {
		log.Fatalf("voxelcoldump: decode %s: %v", *path, err)
	}

	present := 0
	for i := 0; i < 16; i++ {
		if _, ok := c.Section(i); ok {
			present++
		}
	}
	log.Infof("voxelcoldump: %s: arena size %d bytes, %d/16 sections present", *path, c.Size(), present)

	for i := 0; i < 16; i++ {
		s, ok := c.Section(i)
		if !ok {
			continue
		}
		var checksum uint64
		for _, b := range s.Blocks {
			checksum = checksum*31 + uint64(b)
		}
		log.Infof("voxelcoldump: section %2d: sky=%v add=%v blocks_checksum=%s",
			i, s.SkyLight != nil, s.Add != nil, encodeChecksum(checksum))
	}
}

func encodeChecksum(v uint64) string {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return hex.EncodeToString(b)
}
