package security

import (
	"bytes"
	"fmt"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/models"
)

// ThreatScanner searches upload buffers for embedded content that has no
// business being inside an image: script markers that indicate a polyglot
// file, and executable or archive signatures that indicate a disguised binary.
type ThreatScanner struct {
	scriptPatterns [][]byte
	execSignatures map[string][]byte
}

// NewThreatScanner creates a scanner with the default pattern set
func NewThreatScanner() *ThreatScanner {
	return &ThreatScanner{
		scriptPatterns: [][]byte{
			[]byte("<script"),
			[]byte("<?php"),
			[]byte("javascript"),
		},
		execSignatures: map[string][]byte{
			"windows PE": {0x4D, 0x5A},
			"ELF":        {0x7F, 0x45, 0x4C, 0x46},
			"Mach-O":     {0xCA, 0xFE, 0xBA, 0xBE},
			"ZIP":        {0x50, 0x4B, 0x03, 0x04},
		},
	}
}

// Scan checks the full buffer for embedded threats.
// Patterns are matched at any offset: a valid JPEG with a ZIP appended is
// exactly the polyglot this exists to catch.
func (s *ThreatScanner) Scan(data []byte) error {
	for _, pattern := range s.scriptPatterns {
		if bytes.Contains(data, pattern) {
			return fmt.Errorf("%w: script marker %q in image data", models.ErrThreatDetected, pattern)
		}
	}

	for name, sig := range s.execSignatures {
		if bytes.Contains(data, sig) {
			return fmt.Errorf("%w: embedded %s signature", models.ErrThreatDetected, name)
		}
	}

	return nil
}
