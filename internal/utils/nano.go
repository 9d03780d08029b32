package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

var (
	NanoidSize     = 21
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NanoID generates a primary key.
func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size == 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// TransactionReference generates the short, human-readable payment
// reference shown on receipts.
func TransactionReference() string {
	return "TX-" + gonanoid.MustGenerate("0123456789ABCDEFGHJKLMNPQRSTUVWXYZ", 12)
}
