package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// DialProber reports online when a TCP connection to any target succeeds.
type DialProber struct {
	Targets []string
	Dialer  net.Dialer
}

// Probe dials targets in order and stops at the first success.
func (p *DialProber) Probe(ctx context.Context) error {
	if len(p.Targets) == 0 {
		return errors.New("no connectivity targets configured")
	}
	var errs []error
	for _, target := range p.Targets {
		conn, err := p.Dialer.DialContext(ctx, "tcp", target)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", target, err))
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}
