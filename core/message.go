package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// MessageVersion is the only challenge message version accepted
	MessageVersion = "1"

	// IssuedAtLayout renders ISO-8601 timestamps with millisecond precision, as browsers do
	IssuedAtLayout = "2006-01-02T15:04:05.000Z07:00"

	headerSuffix = " wants you to sign in with your Ethereum account:"
	minNonceLen  = 8
)

// Challenge holds the fields rendered into a sign-in message
type Challenge struct {
	Domain    string    // Host requesting the sign-in
	Address   string    // Address exactly as embedded in the message
	Statement string    // Human readable statement, may be empty
	URI       string    // Origin of the requesting application
	Version   string    // Message version, always "1"
	ChainID   int64     // EIP-155 chain id
	Nonce     string    // Single-use nonce from the NonceStore
	IssuedAt  time.Time // Issue time, UTC
}

// Message renders the canonical challenge text. The signature covers these exact bytes,
// so this is the only place the layout is defined.
func (c *Challenge) Message() string {
	var b strings.Builder
	b.WriteString(c.Domain)
	b.WriteString(headerSuffix)
	b.WriteString("\n")
	b.WriteString(c.Address)
	b.WriteString("\n\n")
	if c.Statement != "" {
		b.WriteString(c.Statement)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "URI: %s\n", c.URI)
	fmt.Fprintf(&b, "Version: %s\n", c.Version)
	fmt.Fprintf(&b, "Chain ID: %d\n", c.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", c.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", c.IssuedAt.UTC().Format(IssuedAtLayout))
	return b.String()
}

// ParseChallenge is the strict inverse of Challenge.Message.
// Every failure wraps ErrMessageMalformed.
func ParseChallenge(message string) (*Challenge, error) {
	if strings.ContainsRune(message, '\r') {
		return nil, fmt.Errorf("%w: carriage return in message", ErrMessageMalformed)
	}
	lines := strings.Split(message, "\n")

	c := &Challenge{}
	var fields []string
	switch len(lines) {
	case 10:
		if lines[3] == "" || lines[4] != "" {
			return nil, fmt.Errorf("%w: bad statement block", ErrMessageMalformed)
		}
		c.Statement = lines[3]
		fields = lines[5:]
	case 8:
		fields = lines[3:]
	default:
		return nil, fmt.Errorf("%w: unexpected line count %d", ErrMessageMalformed, len(lines))
	}

	domain, ok := strings.CutSuffix(lines[0], headerSuffix)
	if !ok || domain == "" || strings.ContainsAny(domain, " \t") {
		return nil, fmt.Errorf("%w: bad header line", ErrMessageMalformed)
	}
	c.Domain = domain

	if !common.IsHexAddress(lines[1]) || !strings.HasPrefix(lines[1], "0x") {
		return nil, fmt.Errorf("%w: bad address line", ErrMessageMalformed)
	}
	c.Address = lines[1]

	if lines[2] != "" {
		return nil, fmt.Errorf("%w: missing blank line after address", ErrMessageMalformed)
	}

	values := make([]string, len(fieldLabels))
	for i, label := range fieldLabels {
		v, ok := strings.CutPrefix(fields[i], label+": ")
		if !ok || v == "" {
			return nil, fmt.Errorf("%w: expected %q field", ErrMessageMalformed, label)
		}
		values[i] = v
	}

	c.URI = values[0]

	c.Version = values[1]
	if c.Version != MessageVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMessageMalformed, c.Version)
	}

	chainID, err := strconv.ParseInt(values[2], 10, 64)
	if err != nil || chainID <= 0 || strconv.FormatInt(chainID, 10) != values[2] {
		return nil, fmt.Errorf("%w: bad chain id %q", ErrMessageMalformed, values[2])
	}
	c.ChainID = chainID

	if !validNonce(values[3]) {
		return nil, fmt.Errorf("%w: bad nonce", ErrMessageMalformed)
	}
	c.Nonce = values[3]

	issuedAt, err := time.Parse(time.RFC3339Nano, values[4])
	if err != nil {
		return nil, fmt.Errorf("%w: bad issued at: %v", ErrMessageMalformed, err)
	}
	c.IssuedAt = issuedAt.UTC()

	return c, nil
}

var fieldLabels = []string{"URI", "Version", "Chain ID", "Nonce", "Issued At"}

func validNonce(nonce string) bool {
	if len(nonce) < minNonceLen {
		return false
	}
	for _, r := range nonce {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
